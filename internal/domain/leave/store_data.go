package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is the Postgres-backed StoreAPI implementation.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) LeaveTypeByID(ctx context.Context, id string) (LeaveType, error) {
	var lt LeaveType
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, max_days, requires_doc, requires_approval, active, created_at
    FROM leave_types
    WHERE id = $1
  `, id).Scan(&lt.ID, &lt.Name, &lt.MaxDays, &lt.RequiresDoc, &lt.RequiresApproval, &lt.Active, &lt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveType{}, ErrNotFound
	}
	if err != nil {
		return LeaveType{}, storageErr("leave_type_by_id", err)
	}
	return lt, nil
}

func (s *Store) ActiveLeaveTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, max_days, requires_doc, requires_approval, active, created_at
    FROM leave_types
    WHERE active
    ORDER BY name
  `)
	if err != nil {
		return nil, storageErr("active_leave_types", err)
	}
	defer rows.Close()

	var types []LeaveType
	for rows.Next() {
		var lt LeaveType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.MaxDays, &lt.RequiresDoc, &lt.RequiresApproval, &lt.Active, &lt.CreatedAt); err != nil {
			return nil, storageErr("active_leave_types", err)
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

func (s *Store) CreateLeaveType(ctx context.Context, lt LeaveType) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_types (name, max_days, requires_doc, requires_approval, active)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, lt.Name, lt.MaxDays, lt.RequiresDoc, lt.RequiresApproval, lt.Active).Scan(&id)
	if err != nil {
		return "", storageErr("create_leave_type", err)
	}
	return id, nil
}

func (s *Store) EnsureBalance(ctx context.Context, employeeID, leaveTypeID string, year int, allocated decimal.Decimal) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id, year, allocated_days, used_days, remaining_days)
    VALUES ($1,$2,$3,$4,0,$4)
    ON CONFLICT (employee_id, leave_type_id, year) DO NOTHING
  `, employeeID, leaveTypeID, year, allocated)
	if err != nil {
		return storageErr("ensure_balance", err)
	}
	return nil
}

func (s *Store) BalanceFor(ctx context.Context, employeeID, leaveTypeID string, year int) (LeaveBalance, error) {
	var b LeaveBalance
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_id, leave_type_id, year, allocated_days, used_days, remaining_days, updated_at
    FROM leave_balances
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3
  `, employeeID, leaveTypeID, year).Scan(&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.Year, &b.Allocated, &b.Used, &b.Remaining, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveBalance{}, ErrNotFound
	}
	if err != nil {
		return LeaveBalance{}, storageErr("balance_for", err)
	}
	return b, nil
}

func (s *Store) BalancesFor(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, leave_type_id, year, allocated_days, used_days, remaining_days, updated_at
    FROM leave_balances
    WHERE employee_id = $1 AND year = $2
    ORDER BY leave_type_id
  `, employeeID, year)
	if err != nil {
		return nil, storageErr("balances_for", err)
	}
	defer rows.Close()

	var balances []LeaveBalance
	for rows.Next() {
		var b LeaveBalance
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.Year, &b.Allocated, &b.Used, &b.Remaining, &b.UpdatedAt); err != nil {
			return nil, storageErr("balances_for", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *Store) DebitBalance(ctx context.Context, employeeID, leaveTypeID string, year int, days decimal.Decimal) error {
	tag, err := s.DB.Exec(ctx, debitBalanceSQL, employeeID, leaveTypeID, year, days)
	if err != nil {
		return storageErr("debit_balance", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// The remaining >= days predicate must stay in the WHERE clause; concurrent
// debits serialize on the row lock and the loser matches zero rows.
const debitBalanceSQL = `
    UPDATE leave_balances
    SET used_days = used_days + $4, remaining_days = remaining_days - $4, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3 AND remaining_days >= $4
  `

func (s *Store) HasBlockingOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE employee_id = $1 AND status IN ($2,$3) AND start_date <= $5 AND end_date >= $4
  `, employeeID, StatusPending, StatusApproved, start, end).Scan(&count)
	if err != nil {
		return false, storageErr("has_blocking_overlap", err)
	}
	return count > 0, nil
}

func (s *Store) InsertRequest(ctx context.Context, req *LeaveRequest) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, duration, total_days, reason, status, document_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''))
    RETURNING id, created_at
  `, req.EmployeeID, req.LeaveTypeID, req.StartDate, req.EndDate, req.Duration, req.TotalDays, req.Reason, req.Status, req.DocumentID).Scan(&id, &req.CreatedAt)
	if err != nil {
		return "", storageErr("insert_request", err)
	}
	req.ID = id
	return id, nil
}

func (s *Store) RequestByID(ctx context.Context, id string) (LeaveRequest, error) {
	var req LeaveRequest
	var approverID, documentID *string
	var rejectionReason *string
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_id, leave_type_id, start_date, end_date, duration, total_days, reason, status,
           approver_id, processed_at, rejection_reason, document_id, created_at
    FROM leave_requests
    WHERE id = $1
  `, id).Scan(&req.ID, &req.EmployeeID, &req.LeaveTypeID, &req.StartDate, &req.EndDate, &req.Duration,
		&req.TotalDays, &req.Reason, &req.Status, &approverID, &req.ProcessedAt, &rejectionReason, &documentID, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrNotFound
	}
	if err != nil {
		return LeaveRequest{}, storageErr("request_by_id", err)
	}
	if approverID != nil {
		req.ApproverID = *approverID
	}
	if rejectionReason != nil {
		req.RejectionReason = *rejectionReason
	}
	if documentID != nil {
		req.DocumentID = *documentID
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	query := `
    SELECT r.id, r.employee_id, r.leave_type_id, r.start_date, r.end_date, r.duration, r.total_days, r.reason, r.status,
           r.approver_id, r.processed_at, r.rejection_reason, r.document_id, r.created_at
    FROM leave_requests r
    WHERE 1=1
  `
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND r.employee_id = $%d", len(args))
	}
	if filter.ManagerID != "" {
		args = append(args, filter.ManagerID)
		query += fmt.Sprintf(" AND r.employee_id IN (SELECT id FROM employees WHERE manager_id = $%d)", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	query += " ORDER BY r.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list_requests", err)
	}
	defer rows.Close()

	var requests []LeaveRequest
	for rows.Next() {
		var req LeaveRequest
		var approverID, documentID, rejectionReason *string
		if err := rows.Scan(&req.ID, &req.EmployeeID, &req.LeaveTypeID, &req.StartDate, &req.EndDate, &req.Duration,
			&req.TotalDays, &req.Reason, &req.Status, &approverID, &req.ProcessedAt, &rejectionReason, &documentID, &req.CreatedAt); err != nil {
			return nil, storageErr("list_requests", err)
		}
		if approverID != nil {
			req.ApproverID = *approverID
		}
		if rejectionReason != nil {
			req.RejectionReason = *rejectionReason
		}
		if documentID != nil {
			req.DocumentID = *documentID
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// FinalizeApproval flips a pending request to approved and debits the
// employee's balance for the year of the start date, all in one transaction.
// Sufficiency is re-checked by the debit guard, so a balance exhausted since
// submission fails the approval instead of leaving the ledger inconsistent.
func (s *Store) FinalizeApproval(ctx context.Context, requestID, approverID string, at time.Time) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr("finalize_approval", err)
	}
	defer tx.Rollback(ctx)

	var employeeID, leaveTypeID, status string
	var startDate time.Time
	var days decimal.Decimal
	err = tx.QueryRow(ctx, `
    SELECT employee_id, leave_type_id, start_date, total_days, status
    FROM leave_requests
    WHERE id = $1
    FOR UPDATE
  `, requestID).Scan(&employeeID, &leaveTypeID, &startDate, &days, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return storageErr("finalize_approval", err)
	}
	if status != StatusPending {
		return ErrAlreadyProcessed
	}

	if _, err := tx.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, approver_id = NULLIF($3,''), processed_at = $4
    WHERE id = $1
  `, requestID, StatusApproved, approverID, at); err != nil {
		return storageErr("finalize_approval", err)
	}

	tag, err := tx.Exec(ctx, debitBalanceSQL, employeeID, leaveTypeID, startDate.Year(), days)
	if err != nil {
		return storageErr("finalize_approval", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("finalize_approval", err)
	}
	return nil
}

func (s *Store) FinalizeRejection(ctx context.Context, requestID, approverID, reason string, at time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2, approver_id = NULLIF($3,''), processed_at = $4, rejection_reason = $5
    WHERE id = $1 AND status = $6
  `, requestID, StatusRejected, approverID, at, reason, StatusPending)
	if err != nil {
		return storageErr("finalize_rejection", err)
	}
	if tag.RowsAffected() == 0 {
		return s.processedOrMissing(ctx, requestID)
	}
	return nil
}

func (s *Store) FinalizeCancellation(ctx context.Context, requestID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $2
    WHERE id = $1 AND status = $3
  `, requestID, StatusCancelled, StatusPending)
	if err != nil {
		return storageErr("finalize_cancellation", err)
	}
	if tag.RowsAffected() == 0 {
		return s.processedOrMissing(ctx, requestID)
	}
	return nil
}

// processedOrMissing distinguishes a failed status guard from an unknown id.
func (s *Store) processedOrMissing(ctx context.Context, requestID string) error {
	var exists bool
	if err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM leave_requests WHERE id = $1)", requestID).Scan(&exists); err != nil {
		return storageErr("request_exists", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyProcessed
}

func (s *Store) InsertDocument(ctx context.Context, doc *Document) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_request_documents (file_name, content_type, file_size, data, uploaded_by)
    VALUES ($1,$2,$3,$4,NULLIF($5,''))
    RETURNING id, created_at
  `, doc.FileName, doc.ContentType, doc.FileSize, doc.Data, doc.UploadedBy).Scan(&id, &doc.CreatedAt)
	if err != nil {
		return "", storageErr("insert_document", err)
	}
	doc.ID = id
	return id, nil
}

func (s *Store) DocumentByID(ctx context.Context, id string) (Document, error) {
	var doc Document
	var requestID, uploadedBy *string
	err := s.DB.QueryRow(ctx, `
    SELECT id, leave_request_id, file_name, content_type, file_size, data, uploaded_by, created_at
    FROM leave_request_documents
    WHERE id = $1
  `, id).Scan(&doc.ID, &requestID, &doc.FileName, &doc.ContentType, &doc.FileSize, &doc.Data, &uploadedBy, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, storageErr("document_by_id", err)
	}
	if requestID != nil {
		doc.RequestID = *requestID
	}
	if uploadedBy != nil {
		doc.UploadedBy = *uploadedBy
	}
	return doc, nil
}

func (s *Store) LinkDocument(ctx context.Context, documentID, requestID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE leave_request_documents SET leave_request_id = $2 WHERE id = $1
  `, documentID, requestID)
	if err != nil {
		return storageErr("link_document", err)
	}
	return nil
}
