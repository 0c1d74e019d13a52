package employee

import (
	"context"
	"errors"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/leave"
)

// StoreAPI is the persistence surface the employee service needs.
// Satisfied by Store.
type StoreAPI interface {
	ManagerLookup
	InsertWithBalances(ctx context.Context, e *Employee, year int, types []leave.LeaveType) (string, error)
	ByID(ctx context.Context, id string) (Employee, error)
	List(ctx context.Context, limit, offset int) ([]Employee, error)
	SetManager(ctx context.Context, employeeID, managerID string) error
	Deactivate(ctx context.Context, employeeID string) error
}

// TypeCatalog lists the active leave types onboarding creates balance rows
// for. Satisfied by leave.Ledger.
type TypeCatalog interface {
	ActiveTypes(ctx context.Context) ([]leave.LeaveType, error)
}

type Service struct {
	Store StoreAPI
	Types TypeCatalog
}

func NewService(store StoreAPI, types TypeCatalog) *Service {
	return &Service{Store: store, Types: types}
}

type CreateInput struct {
	Employee Employee
	Password string
	Year     int
}

// Create validates the manager chain, then persists the employee together
// with the year's balance rows (one per active leave type, allocated from
// the entitlements) in a single transaction. A failure during onboarding
// leaves nothing behind, so the caller can retry with the same email.
func (s *Service) Create(ctx context.Context, input CreateInput) (Employee, error) {
	e := input.Employee
	if !auth.ValidRole(e.Role) {
		return Employee{}, ErrInvalidRole
	}
	if e.ManagerID != "" {
		if _, err := s.Store.ByID(ctx, e.ManagerID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Employee{}, ErrUnknownManager
			}
			return Employee{}, err
		}
		if err := ValidateManagerChain(ctx, s.Store, e.ID, e.ManagerID); err != nil {
			return Employee{}, err
		}
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return Employee{}, err
	}
	e.PasswordHash = hash
	e.Active = true

	types, err := s.Types.ActiveTypes(ctx)
	if err != nil {
		return Employee{}, err
	}
	id, err := s.Store.InsertWithBalances(ctx, &e, input.Year, types)
	if err != nil {
		return Employee{}, err
	}
	return s.Store.ByID(ctx, id)
}

// AssignManager re-parents an employee after checking the move keeps the
// hierarchy acyclic.
func (s *Service) AssignManager(ctx context.Context, employeeID, managerID string) error {
	if managerID != "" {
		if _, err := s.Store.ByID(ctx, managerID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrUnknownManager
			}
			return err
		}
	}
	if err := ValidateManagerChain(ctx, s.Store, employeeID, managerID); err != nil {
		return err
	}
	return s.Store.SetManager(ctx, employeeID, managerID)
}

func (s *Service) Get(ctx context.Context, id string) (Employee, error) {
	return s.Store.ByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Employee, error) {
	return s.Store.List(ctx, limit, offset)
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.Store.Deactivate(ctx, id)
}
