package employee

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leavedesk/internal/domain/leave"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const employeeColumns = `
    id, email, password_hash, first_name, last_name, role, COALESCE(manager_id::text, ''),
    annual_days, sick_days, emergency_days, active, created_at, updated_at
  `

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Email, &e.PasswordHash, &e.FirstName, &e.LastName, &e.Role, &e.ManagerID,
		&e.AnnualDays, &e.SickDays, &e.EmergencyDays, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	return e, nil
}

// InsertWithBalances creates the employee and one balance row per given
// leave type in a single transaction. A failure anywhere rolls the whole
// onboarding back, so an employee row is never committed without its
// ledger and a failed call can simply be retried.
func (s *Store) InsertWithBalances(ctx context.Context, e *Employee, year int, types []leave.LeaveType) (string, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
    INSERT INTO employees (email, password_hash, first_name, last_name, role, manager_id, annual_days, sick_days, emergency_days, active)
    VALUES ($1,$2,$3,$4,$5,NULLIF($6,'')::uuid,$7,$8,$9,TRUE)
    RETURNING id
  `, e.Email, e.PasswordHash, e.FirstName, e.LastName, e.Role, e.ManagerID, e.AnnualDays, e.SickDays, e.EmergencyDays).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", ErrEmailTaken
	}
	if err != nil {
		return "", err
	}

	entitlements := leave.Entitlements{
		Annual:    e.AnnualDays,
		Sick:      e.SickDays,
		Emergency: e.EmergencyDays,
	}
	for _, lt := range types {
		if _, err := tx.Exec(ctx, `
      INSERT INTO leave_balances (employee_id, leave_type_id, year, allocated_days, used_days, remaining_days)
      VALUES ($1,$2,$3,$4,0,$4)
      ON CONFLICT (employee_id, leave_type_id, year) DO NOTHING
    `, id, lt.ID, year, entitlements.DaysFor(lt.Name)); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	e.ID = id
	return id, nil
}

func (s *Store) ByID(ctx context.Context, id string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = $1", id))
}

func (s *Store) ByEmail(ctx context.Context, email string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE email = $1 AND active", email))
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Store) ManagerIDOf(ctx context.Context, employeeID string) (string, error) {
	var managerID string
	err := s.DB.QueryRow(ctx, "SELECT COALESCE(manager_id::text, '') FROM employees WHERE id = $1", employeeID).Scan(&managerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return managerID, nil
}

// IsManagerOf reports whether managerID is the direct manager of employeeID.
func (s *Store) IsManagerOf(ctx context.Context, managerID, employeeID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE id = $1 AND manager_id = $2", employeeID, managerID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) SetManager(ctx context.Context, employeeID, managerID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees SET manager_id = NULLIF($2,'')::uuid, updated_at = now() WHERE id = $1
  `, employeeID, managerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes: employees are never removed, only flagged.
func (s *Store) Deactivate(ctx context.Context, employeeID string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE employees SET active = FALSE, updated_at = now() WHERE id = $1", employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
