package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

const (
	DurationFullDay          = "full-day"
	DurationHalfDayMorning   = "half-day-morning"
	DurationHalfDayAfternoon = "half-day-afternoon"
)

// TerminalStatus reports whether no further transition is permitted from status.
func TerminalStatus(status string) bool {
	return status == StatusApproved || status == StatusRejected || status == StatusCancelled
}

type LeaveType struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	MaxDays          decimal.Decimal `json:"maxDays"`
	RequiresDoc      bool            `json:"requiresDoc"`
	RequiresApproval bool            `json:"requiresApproval"`
	Active           bool            `json:"active"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// LeaveBalance is the per-employee, per-type, per-year ledger row.
// Remaining = Allocated - Used must hold after every mutation; the store
// enforces it with a CHECK constraint and updates both sides together.
type LeaveBalance struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employeeId"`
	LeaveTypeID string          `json:"leaveTypeId"`
	Year        int             `json:"year"`
	Allocated   decimal.Decimal `json:"allocatedDays"`
	Used        decimal.Decimal `json:"usedDays"`
	Remaining   decimal.Decimal `json:"remainingDays"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type LeaveRequest struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employeeId"`
	LeaveTypeID     string          `json:"leaveTypeId"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	Duration        string          `json:"duration"`
	TotalDays       decimal.Decimal `json:"totalDays"`
	Reason          string          `json:"reason"`
	Status          string          `json:"status"`
	ApproverID      string          `json:"approverId,omitempty"`
	ProcessedAt     *time.Time      `json:"processedAt,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	DocumentID      string          `json:"documentId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type Document struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"requestId,omitempty"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	FileSize    int64     `json:"fileSize"`
	UploadedBy  string    `json:"uploadedBy,omitempty"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}
