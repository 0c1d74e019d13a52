package leave

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntitlements() Entitlements {
	return Entitlements{
		Annual:    decimal.NewFromInt(21),
		Sick:      decimal.NewFromInt(14),
		Emergency: decimal.NewFromInt(7),
	}
}

func TestLedgerInitializeAllocatesFromEntitlements(t *testing.T) {
	store := newMemStore()
	annualID := store.addType("Annual Leave", false, true)
	sickID := store.addType("Sick Leave", false, true)
	unpaidID := store.addType("Unpaid Leave", false, true)
	ledger := NewLedger(store)

	require.NoError(t, ledger.Initialize(context.Background(), "emp-1", 2025, testEntitlements()))

	annual, err := store.BalanceFor(context.Background(), "emp-1", annualID, 2025)
	require.NoError(t, err)
	assert.True(t, annual.Allocated.Equal(decimal.NewFromInt(21)))
	assert.True(t, annual.Remaining.Equal(decimal.NewFromInt(21)))
	assert.True(t, annual.Used.IsZero())

	sick, err := store.BalanceFor(context.Background(), "emp-1", sickID, 2025)
	require.NoError(t, err)
	assert.True(t, sick.Allocated.Equal(decimal.NewFromInt(14)))

	// Types without a mapped entitlement get a zero allocation.
	unpaid, err := store.BalanceFor(context.Background(), "emp-1", unpaidID, 2025)
	require.NoError(t, err)
	assert.True(t, unpaid.Allocated.IsZero())
	assert.True(t, unpaid.Remaining.IsZero())
}

func TestLedgerInitializeIsIdempotent(t *testing.T) {
	store := newMemStore()
	annualID := store.addType("Annual Leave", false, true)
	ledger := NewLedger(store)
	ctx := context.Background()

	require.NoError(t, ledger.Initialize(ctx, "emp-1", 2025, testEntitlements()))
	require.NoError(t, ledger.Debit(ctx, "emp-1", annualID, 2025, decimal.NewFromInt(3)))

	// Re-initializing must not overwrite the consumed balance.
	require.NoError(t, ledger.Initialize(ctx, "emp-1", 2025, testEntitlements()))

	balance, err := store.BalanceFor(ctx, "emp-1", annualID, 2025)
	require.NoError(t, err)
	assert.True(t, balance.Used.Equal(decimal.NewFromInt(3)))
	assert.True(t, balance.Remaining.Equal(decimal.NewFromInt(18)))
}

func TestLedgerArithmeticInvariant(t *testing.T) {
	store := newMemStore()
	annualID := store.addType("Annual Leave", false, true)
	ledger := NewLedger(store)
	ctx := context.Background()

	require.NoError(t, ledger.Initialize(ctx, "emp-1", 2025, testEntitlements()))
	for _, days := range []string{"1", "0.5", "3", "2.5"} {
		require.NoError(t, ledger.Debit(ctx, "emp-1", annualID, 2025, decimal.RequireFromString(days)))
		balance, err := store.BalanceFor(ctx, "emp-1", annualID, 2025)
		require.NoError(t, err)
		assert.True(t, balance.Remaining.Equal(balance.Allocated.Sub(balance.Used)),
			"remaining %v != allocated %v - used %v", balance.Remaining, balance.Allocated, balance.Used)
	}
}

func TestLedgerCheckSufficient(t *testing.T) {
	store := newMemStore()
	annualID := store.addType("Annual Leave", false, true)
	ledger := NewLedger(store)
	ctx := context.Background()

	// No balance row yet: insufficient, not an error.
	ok, err := ledger.CheckSufficient(ctx, "emp-1", annualID, 2025, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Initialize(ctx, "emp-1", 2025, testEntitlements()))

	ok, err = ledger.CheckSufficient(ctx, "emp-1", annualID, 2025, decimal.NewFromInt(21))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.CheckSufficient(ctx, "emp-1", annualID, 2025, decimal.RequireFromString("21.5"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerDebitInsufficient(t *testing.T) {
	store := newMemStore()
	annualID := store.addType("Annual Leave", false, true)
	ledger := NewLedger(store)
	ctx := context.Background()

	require.NoError(t, ledger.Initialize(ctx, "emp-1", 2025, Entitlements{Annual: decimal.NewFromInt(2)}))

	err := ledger.Debit(ctx, "emp-1", annualID, 2025, decimal.NewFromInt(3))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// The failed debit must not have moved the counters.
	balance, err := store.BalanceFor(ctx, "emp-1", annualID, 2025)
	require.NoError(t, err)
	assert.True(t, balance.Used.IsZero())
	assert.True(t, balance.Remaining.Equal(decimal.NewFromInt(2)))

	// Debiting a year with no row fails the same way.
	err = ledger.Debit(ctx, "emp-1", annualID, 2026, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}
