package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StoreAPI is the persistence contract for the leave core.
//
// FinalizeApproval must be atomic: the pending->approved status flip and the
// balance debit (including the sufficiency re-check) either both commit or
// neither does. FinalizeRejection and FinalizeCancellation guard on pending
// status at write time.
type StoreAPI interface {
	LeaveTypeByID(ctx context.Context, id string) (LeaveType, error)
	ActiveLeaveTypes(ctx context.Context) ([]LeaveType, error)
	CreateLeaveType(ctx context.Context, lt LeaveType) (string, error)

	EnsureBalance(ctx context.Context, employeeID, leaveTypeID string, year int, allocated decimal.Decimal) error
	BalanceFor(ctx context.Context, employeeID, leaveTypeID string, year int) (LeaveBalance, error)
	BalancesFor(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error)
	DebitBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days decimal.Decimal) error

	HasBlockingOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error)

	InsertRequest(ctx context.Context, req *LeaveRequest) (string, error)
	RequestByID(ctx context.Context, id string) (LeaveRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)
	FinalizeApproval(ctx context.Context, requestID, approverID string, at time.Time) error
	FinalizeRejection(ctx context.Context, requestID, approverID, reason string, at time.Time) error
	FinalizeCancellation(ctx context.Context, requestID string) error

	InsertDocument(ctx context.Context, doc *Document) (string, error)
	DocumentByID(ctx context.Context, id string) (Document, error)
	LinkDocument(ctx context.Context, documentID, requestID string) error
}

type RequestFilter struct {
	EmployeeID string
	ManagerID  string
	Status     string
	Limit      int
	Offset     int
}
