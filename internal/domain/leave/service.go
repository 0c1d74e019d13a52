package leave

import (
	"context"
	"strings"
	"time"
)

// AuditSink receives lifecycle events. Implementations must not block the
// caller on delivery; the service fires and forgets.
type AuditSink interface {
	Record(ctx context.Context, actorID, action, resource, resourceID string, details any)
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, string, string, string, string, any) {}

// Service drives the leave-request state machine:
// pending -> approved | rejected | cancelled, all terminal.
type Service struct {
	store  StoreAPI
	ledger *Ledger
	audit  AuditSink
}

func NewService(store StoreAPI, ledger *Ledger, audit AuditSink) *Service {
	if audit == nil {
		audit = noopAudit{}
	}
	return &Service{store: store, ledger: ledger, audit: audit}
}

func (s *Service) Ledger() *Ledger {
	return s.ledger
}

type SubmitInput struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	Duration    string
	Reason      string
	DocumentID  string
}

// Submit validates a leave application and persists it as pending.
// The sufficiency and overlap checks are advisory: they reflect ledger state
// at call time, and sufficiency is re-validated transactionally at approval.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (LeaveRequest, error) {
	days, err := ChargeableDays(input.StartDate, input.EndDate, input.Duration)
	if err != nil {
		return LeaveRequest{}, err
	}

	leaveType, err := s.store.LeaveTypeByID(ctx, input.LeaveTypeID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if leaveType.RequiresDoc && input.DocumentID == "" {
		return LeaveRequest{}, ErrDocumentRequired
	}

	year := input.StartDate.Year()
	sufficient, err := s.ledger.CheckSufficient(ctx, input.EmployeeID, input.LeaveTypeID, year, days)
	if err != nil {
		return LeaveRequest{}, err
	}
	if !sufficient {
		return LeaveRequest{}, ErrInsufficientBalance
	}

	// Fail closed: a lookup failure blocks the request rather than risking a
	// double booking.
	overlaps, err := s.store.HasBlockingOverlap(ctx, input.EmployeeID, input.StartDate, input.EndDate)
	if err != nil || overlaps {
		return LeaveRequest{}, ErrOverlappingRequest
	}

	request := LeaveRequest{
		EmployeeID:  input.EmployeeID,
		LeaveTypeID: input.LeaveTypeID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Duration:    input.Duration,
		TotalDays:   days,
		Reason:      input.Reason,
		Status:      StatusPending,
		DocumentID:  input.DocumentID,
	}
	id, err := s.store.InsertRequest(ctx, &request)
	if err != nil {
		return LeaveRequest{}, err
	}
	request.ID = id
	if input.DocumentID != "" {
		if err := s.store.LinkDocument(ctx, input.DocumentID, id); err != nil {
			return LeaveRequest{}, err
		}
	}
	s.audit.Record(ctx, input.EmployeeID, "CREATE", "leave_request", id, map[string]any{
		"leaveTypeId": input.LeaveTypeID,
		"totalDays":   days,
	})

	if !leaveType.RequiresApproval {
		return s.Approve(ctx, id, "")
	}
	return request, nil
}

// Approve transitions a pending request to approved and debits the balance
// for the year of the request's start date. The status flip, the sufficiency
// re-check and the debit happen in one atomic store operation, so the ledger
// is never debited for a request that did not persist as approved.
func (s *Service) Approve(ctx context.Context, requestID, approverID string) (LeaveRequest, error) {
	if err := s.store.FinalizeApproval(ctx, requestID, approverID, time.Now().UTC()); err != nil {
		return LeaveRequest{}, err
	}
	s.audit.Record(ctx, approverID, "APPROVE", "leave_request", requestID, nil)
	return s.store.RequestByID(ctx, requestID)
}

// Reject transitions a pending request to rejected. The ledger is untouched.
func (s *Service) Reject(ctx context.Context, requestID, approverID, reason string) (LeaveRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return LeaveRequest{}, ErrMissingReason
	}
	if err := s.store.FinalizeRejection(ctx, requestID, approverID, reason, time.Now().UTC()); err != nil {
		return LeaveRequest{}, err
	}
	s.audit.Record(ctx, approverID, "REJECT", "leave_request", requestID, map[string]any{"reason": reason})
	return s.store.RequestByID(ctx, requestID)
}

// Cancel transitions a pending request to cancelled. Approved requests
// cannot be cancelled here, so no balance is ever restored by this path.
func (s *Service) Cancel(ctx context.Context, requestID, actorID string) (LeaveRequest, error) {
	if err := s.store.FinalizeCancellation(ctx, requestID); err != nil {
		return LeaveRequest{}, err
	}
	s.audit.Record(ctx, actorID, "CANCEL", "leave_request", requestID, nil)
	return s.store.RequestByID(ctx, requestID)
}

func (s *Service) Request(ctx context.Context, id string) (LeaveRequest, error) {
	return s.store.RequestByID(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	return s.store.ListRequests(ctx, filter)
}

func (s *Service) ListTypes(ctx context.Context) ([]LeaveType, error) {
	return s.store.ActiveLeaveTypes(ctx)
}

func (s *Service) CreateType(ctx context.Context, lt LeaveType) (string, error) {
	return s.store.CreateLeaveType(ctx, lt)
}

func (s *Service) UploadDocument(ctx context.Context, doc *Document) (string, error) {
	return s.store.InsertDocument(ctx, doc)
}

func (s *Service) Document(ctx context.Context, id string) (Document, error) {
	return s.store.DocumentByID(ctx, id)
}
