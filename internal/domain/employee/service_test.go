package employee

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavedesk/internal/domain/leave"
)

// stubStore is an in-memory StoreAPI. InsertWithBalances mirrors the real
// store's contract: employee and balance rows land together or not at all.
type stubStore struct {
	seq       int
	employees map[string]Employee
	balances  map[string]decimal.Decimal

	// insertErr makes InsertWithBalances fail before writing anything.
	insertErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		employees: map[string]Employee{},
		balances:  map[string]decimal.Decimal{},
	}
}

func (s *stubStore) InsertWithBalances(_ context.Context, e *Employee, year int, types []leave.LeaveType) (string, error) {
	if s.insertErr != nil {
		return "", s.insertErr
	}
	for _, existing := range s.employees {
		if existing.Email == e.Email {
			return "", ErrEmailTaken
		}
	}

	s.seq++
	id := fmt.Sprintf("emp-%d", s.seq)
	e.ID = id
	s.employees[id] = *e

	entitlements := leave.Entitlements{
		Annual:    e.AnnualDays,
		Sick:      e.SickDays,
		Emergency: e.EmergencyDays,
	}
	for _, lt := range types {
		s.balances[fmt.Sprintf("%s/%s/%d", id, lt.ID, year)] = entitlements.DaysFor(lt.Name)
	}
	return id, nil
}

func (s *stubStore) ByID(_ context.Context, id string) (Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (s *stubStore) List(context.Context, int, int) ([]Employee, error) {
	var out []Employee
	for _, e := range s.employees {
		out = append(out, e)
	}
	return out, nil
}

func (s *stubStore) ManagerIDOf(_ context.Context, employeeID string) (string, error) {
	e, ok := s.employees[employeeID]
	if !ok {
		return "", ErrNotFound
	}
	return e.ManagerID, nil
}

func (s *stubStore) SetManager(_ context.Context, employeeID, managerID string) error {
	e, ok := s.employees[employeeID]
	if !ok {
		return ErrNotFound
	}
	e.ManagerID = managerID
	s.employees[employeeID] = e
	return nil
}

func (s *stubStore) Deactivate(_ context.Context, employeeID string) error {
	e, ok := s.employees[employeeID]
	if !ok {
		return ErrNotFound
	}
	e.Active = false
	s.employees[employeeID] = e
	return nil
}

// stubCatalog lists fixed leave types.
type stubCatalog []leave.LeaveType

func (c stubCatalog) ActiveTypes(context.Context) ([]leave.LeaveType, error) {
	return c, nil
}

func testCatalog() stubCatalog {
	return stubCatalog{
		{ID: "type-annual", Name: "Annual Leave", Active: true},
		{ID: "type-sick", Name: "Sick Leave", Active: true},
		{ID: "type-unpaid", Name: "Unpaid Leave", Active: true},
	}
}

func testCreateInput() CreateInput {
	return CreateInput{
		Employee: Employee{
			Email:      "jane@example.com",
			FirstName:  "Jane",
			LastName:   "Doe",
			Role:       "employee",
			AnnualDays: decimal.NewFromInt(21),
			SickDays:   decimal.NewFromInt(14),
		},
		Password: "Secret123",
		Year:     2025,
	}
}

func TestCreateOnboardsBalancesPerType(t *testing.T) {
	store := newStubStore()
	service := NewService(store, testCatalog())

	created, err := service.Create(context.Background(), testCreateInput())
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NotEqual(t, "Secret123", created.PasswordHash)

	key := func(typeID string) string { return fmt.Sprintf("%s/%s/%d", created.ID, typeID, 2025) }
	assert.True(t, store.balances[key("type-annual")].Equal(decimal.NewFromInt(21)))
	assert.True(t, store.balances[key("type-sick")].Equal(decimal.NewFromInt(14)))
	assert.True(t, store.balances[key("type-unpaid")].IsZero())
}

func TestCreateFailureLeavesNothingAndIsRetryable(t *testing.T) {
	store := newStubStore()
	store.insertErr = errors.New("connection reset")
	service := NewService(store, testCatalog())

	_, err := service.Create(context.Background(), testCreateInput())
	require.Error(t, err)
	assert.Empty(t, store.employees)
	assert.Empty(t, store.balances)

	store.insertErr = nil
	created, err := service.Create(context.Background(), testCreateInput())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, store.balances, 3)

	_, err = service.Create(context.Background(), testCreateInput())
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateRejectsUnknownManager(t *testing.T) {
	store := newStubStore()
	service := NewService(store, testCatalog())

	input := testCreateInput()
	input.Employee.ManagerID = "ghost"
	_, err := service.Create(context.Background(), input)
	assert.ErrorIs(t, err, ErrUnknownManager)
	assert.Empty(t, store.employees)
}

func TestCreateRejectsInvalidRole(t *testing.T) {
	store := newStubStore()
	service := NewService(store, testCatalog())

	input := testCreateInput()
	input.Employee.Role = "contractor"
	_, err := service.Create(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidRole)
}
