package leave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory StoreAPI used by the service and ledger tests.
// It mirrors the transactional guarantees of the Postgres store: status
// guards are checked at write time and FinalizeApproval debits the balance
// only together with the status flip.
type memStore struct {
	mu       sync.Mutex
	seq      int
	types    map[string]LeaveType
	balances map[string]*LeaveBalance
	requests map[string]*LeaveRequest
	docs     map[string]*Document

	// overlapErr forces HasBlockingOverlap to fail, for fail-closed tests.
	overlapErr error
	// balanceErr forces BalanceFor to fail, for storage-failure tests.
	balanceErr error
}

func newMemStore() *memStore {
	return &memStore{
		types:    map[string]LeaveType{},
		balances: map[string]*LeaveBalance{},
		requests: map[string]*LeaveRequest{},
		docs:     map[string]*Document{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func balanceKey(employeeID, leaveTypeID string, year int) string {
	return fmt.Sprintf("%s/%s/%d", employeeID, leaveTypeID, year)
}

func (m *memStore) addType(name string, requiresDoc, requiresApproval bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("type")
	m.types[id] = LeaveType{
		ID:               id,
		Name:             name,
		RequiresDoc:      requiresDoc,
		RequiresApproval: requiresApproval,
		Active:           true,
		CreatedAt:        time.Now(),
	}
	return id
}

func (m *memStore) LeaveTypeByID(_ context.Context, id string) (LeaveType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lt, ok := m.types[id]
	if !ok {
		return LeaveType{}, ErrNotFound
	}
	return lt, nil
}

func (m *memStore) ActiveLeaveTypes(context.Context) ([]LeaveType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LeaveType
	for _, lt := range m.types {
		if lt.Active {
			out = append(out, lt)
		}
	}
	return out, nil
}

func (m *memStore) CreateLeaveType(_ context.Context, lt LeaveType) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("type")
	lt.ID = id
	m.types[id] = lt
	return id, nil
}

func (m *memStore) EnsureBalance(_ context.Context, employeeID, leaveTypeID string, year int, allocated decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := balanceKey(employeeID, leaveTypeID, year)
	if _, ok := m.balances[key]; ok {
		return nil
	}
	m.balances[key] = &LeaveBalance{
		ID:          m.nextID("bal"),
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		Year:        year,
		Allocated:   allocated,
		Used:        decimal.Zero,
		Remaining:   allocated,
	}
	return nil
}

func (m *memStore) BalanceFor(_ context.Context, employeeID, leaveTypeID string, year int) (LeaveBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balanceErr != nil {
		return LeaveBalance{}, m.balanceErr
	}
	b, ok := m.balances[balanceKey(employeeID, leaveTypeID, year)]
	if !ok {
		return LeaveBalance{}, ErrNotFound
	}
	return *b, nil
}

func (m *memStore) BalancesFor(_ context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LeaveBalance
	for _, b := range m.balances {
		if b.EmployeeID == employeeID && b.Year == year {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) DebitBalance(_ context.Context, employeeID, leaveTypeID string, year int, days decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debitLocked(employeeID, leaveTypeID, year, days)
}

func (m *memStore) debitLocked(employeeID, leaveTypeID string, year int, days decimal.Decimal) error {
	b, ok := m.balances[balanceKey(employeeID, leaveTypeID, year)]
	if !ok || b.Remaining.LessThan(days) {
		return ErrInsufficientBalance
	}
	b.Used = b.Used.Add(days)
	b.Remaining = b.Remaining.Sub(days)
	b.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) HasBlockingOverlap(_ context.Context, employeeID string, start, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overlapErr != nil {
		return false, m.overlapErr
	}
	for _, req := range m.requests {
		if req.EmployeeID != employeeID {
			continue
		}
		if req.Status != StatusPending && req.Status != StatusApproved {
			continue
		}
		if RangesOverlap(req.StartDate, req.EndDate, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertRequest(_ context.Context, req *LeaveRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("req")
	req.ID = id
	req.CreatedAt = time.Now()
	stored := *req
	m.requests[id] = &stored
	return id, nil
}

func (m *memStore) RequestByID(_ context.Context, id string) (LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return LeaveRequest{}, ErrNotFound
	}
	return *req, nil
}

func (m *memStore) ListRequests(_ context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LeaveRequest
	for _, req := range m.requests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (m *memStore) FinalizeApproval(_ context.Context, requestID, approverID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	if TerminalStatus(req.Status) {
		return ErrAlreadyProcessed
	}
	if err := m.debitLocked(req.EmployeeID, req.LeaveTypeID, req.StartDate.Year(), req.TotalDays); err != nil {
		return err
	}
	req.Status = StatusApproved
	req.ApproverID = approverID
	processedAt := at
	req.ProcessedAt = &processedAt
	return nil
}

func (m *memStore) FinalizeRejection(_ context.Context, requestID, approverID, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	if TerminalStatus(req.Status) {
		return ErrAlreadyProcessed
	}
	req.Status = StatusRejected
	req.ApproverID = approverID
	req.RejectionReason = reason
	processedAt := at
	req.ProcessedAt = &processedAt
	return nil
}

func (m *memStore) FinalizeCancellation(_ context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	if TerminalStatus(req.Status) {
		return ErrAlreadyProcessed
	}
	req.Status = StatusCancelled
	return nil
}

func (m *memStore) InsertDocument(_ context.Context, doc *Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("doc")
	doc.ID = id
	doc.CreatedAt = time.Now()
	stored := *doc
	m.docs[id] = &stored
	return id, nil
}

func (m *memStore) DocumentByID(_ context.Context, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return *doc, nil
}

func (m *memStore) LinkDocument(_ context.Context, documentID, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.RequestID = requestID
	return nil
}
