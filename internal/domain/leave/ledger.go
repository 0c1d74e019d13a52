package leave

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Entitlements holds the per-type annual allocations granted to an employee.
// Leave types are matched by name; a type without a mapped entitlement is
// allocated zero days.
type Entitlements struct {
	Annual    decimal.Decimal
	Sick      decimal.Decimal
	Emergency decimal.Decimal
}

// DaysFor maps a leave-type name to its entitlement.
func (e Entitlements) DaysFor(typeName string) decimal.Decimal {
	name := strings.ToLower(typeName)
	switch {
	case strings.Contains(name, "annual"):
		return e.Annual
	case strings.Contains(name, "sick"):
		return e.Sick
	case strings.Contains(name, "emergency"):
		return e.Emergency
	default:
		return decimal.Zero
	}
}

// Ledger owns the per-employee, per-type, per-year balance bookkeeping.
// The operative year is always an explicit parameter so callers and tests
// control it; the ledger never consults the wall clock.
type Ledger struct {
	store StoreAPI
}

func NewLedger(store StoreAPI) *Ledger {
	return &Ledger{store: store}
}

// Initialize creates one balance row per active leave type for the given
// year, allocated from the employee's entitlements. It is idempotent:
// re-initializing an existing (employee, type, year) triple is a no-op and
// never overwrites an allocation.
func (l *Ledger) Initialize(ctx context.Context, employeeID string, year int, entitlements Entitlements) error {
	types, err := l.store.ActiveLeaveTypes(ctx)
	if err != nil {
		return err
	}
	for _, lt := range types {
		if err := l.store.EnsureBalance(ctx, employeeID, lt.ID, year, entitlements.DaysFor(lt.Name)); err != nil {
			return err
		}
	}
	return nil
}

// ActiveTypes lists the leave types balances are kept for.
func (l *Ledger) ActiveTypes(ctx context.Context) ([]LeaveType, error) {
	return l.store.ActiveLeaveTypes(ctx)
}

// CheckSufficient reports whether the balance row exists and has at least
// the requested days remaining. A missing row means insufficient, not an
// error.
func (l *Ledger) CheckSufficient(ctx context.Context, employeeID, leaveTypeID string, year int, days decimal.Decimal) (bool, error) {
	balance, err := l.store.BalanceFor(ctx, employeeID, leaveTypeID, year)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return balance.Remaining.GreaterThanOrEqual(days), nil
}

// Debit consumes days from the matching balance row, incrementing used and
// decrementing remaining in one guarded write. It fails with
// ErrInsufficientBalance when the row is missing or would go negative.
// The approval path runs this same debit inside the approval transaction so
// a request is never approved without its balance being consumed.
func (l *Ledger) Debit(ctx context.Context, employeeID, leaveTypeID string, year int, days decimal.Decimal) error {
	return l.store.DebitBalance(ctx, employeeID, leaveTypeID, year, days)
}

// Balances returns all balance rows for the employee and year.
func (l *Ledger) Balances(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	return l.store.BalancesFor(ctx, employeeID, year)
}
