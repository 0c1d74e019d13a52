package leave

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange        = errors.New("end date before start date")
	ErrInvalidDuration     = errors.New("unknown duration mode")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrOverlappingRequest  = errors.New("overlapping leave request")
	ErrAlreadyProcessed    = errors.New("leave request already processed")
	ErrNotFound            = errors.New("leave request not found")
	ErrMissingReason       = errors.New("rejection reason is required")
	ErrDocumentRequired    = errors.New("supporting document is required")
)

// StorageError marks a persistence-layer failure. Callers may retry these;
// the sentinel errors above are business rejections and must not be retried
// without correcting the request.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
