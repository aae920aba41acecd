package fees_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/fee-ledger/fees"
	"github.com/warp/fee-ledger/money"
)

// =============================================================================
// RECORDING
// =============================================================================

func TestLedger_Record_Defaults(t *testing.T) {
	// Verified defaults to true (cash recorded by an admin), paid_at
	// defaults to submission time.
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	before := time.Now().UTC()
	payment, err := env.ledger.Record(ctx, fees.RecordParams{
		ProfileID: profile.ID,
		Amount:    money.FromRupees(1000),
		Frequency: fees.FrequencyQuarterly,
	})
	require.NoError(t, err)

	assert.True(t, payment.Verified)
	assert.Equal(t, fees.EntryPayment, payment.Kind)
	assert.Equal(t, profile.YearID, payment.YearID)
	assert.False(t, payment.PaidAt.Before(before))
	assert.NotZero(t, payment.ID)
}

func TestLedger_Record_InvalidInputs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	_, err := env.ledger.Record(ctx, fees.RecordParams{
		ProfileID: profile.ID,
		Amount:    money.FromPaise(0),
		Frequency: fees.FrequencyMonthly,
	})
	assert.ErrorIs(t, err, fees.ErrInvalidAmount)

	_, err = env.ledger.Record(ctx, fees.RecordParams{
		ProfileID: profile.ID,
		Amount:    money.FromRupees(-100),
		Frequency: fees.FrequencyMonthly,
	})
	assert.ErrorIs(t, err, fees.ErrInvalidAmount)

	_, err = env.ledger.Record(ctx, fees.RecordParams{
		ProfileID: profile.ID,
		Amount:    money.FromRupees(100),
		Frequency: "WEEKLY",
	})
	assert.ErrorIs(t, err, fees.ErrInvalidFrequency)

	_, err = env.ledger.Record(ctx, fees.RecordParams{
		ProfileID: "no-such-profile",
		Amount:    money.FromRupees(100),
		Frequency: fees.FrequencyMonthly,
	})
	assert.ErrorIs(t, err, fees.ErrNotFound)
}

// =============================================================================
// RECEIPT UNIQUENESS
// =============================================================================

func TestLedger_Record_DuplicateReceipt_SameYear_Rejected(t *testing.T) {
	// GIVEN: RCP-001 already used in 2025-26, by a different student
	// WHEN: recording RCP-001 again in 2025-26, and again in 2026-27
	// THEN: same year is rejected, next year is accepted

	env := newTestEnv(t)
	ctx := context.Background()

	s25 := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	s26 := mustStructure(t, env, "class-6a", "2026-27", 5000, 500)
	p1 := mustProfile(t, env, "stu-1", s25.ID, 0, 0)
	p2 := mustProfile(t, env, "stu-2", s25.ID, 0, 0)

	mustPayment(t, env, p1.ID, 1000, "RCP-001")

	_, err := env.ledger.Record(ctx, fees.RecordParams{
		ProfileID:     p2.ID,
		Amount:        money.FromRupees(1000),
		Frequency:     fees.FrequencyMonthly,
		ReceiptNumber: "RCP-001",
	})
	assert.ErrorIs(t, err, fees.ErrDuplicateReceipt)
	var dupErr *fees.DuplicateReceiptError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "RCP-001", dupErr.ReceiptNumber)
	assert.Equal(t, fees.YearID("2025-26"), dupErr.YearID)

	// Receipt books restart each academic year.
	p3, err := env.profiles.Create(ctx, fees.CreateProfileParams{
		StudentID: "stu-1", StudentName: "Student stu-1", StructureID: s26.ID,
	})
	require.NoError(t, err)
	_, err = env.ledger.Record(ctx, fees.RecordParams{
		ProfileID:     p3.ID,
		Amount:        money.FromRupees(1000),
		Frequency:     fees.FrequencyMonthly,
		ReceiptNumber: "RCP-001",
	})
	assert.NoError(t, err)
}

func TestLedger_Record_EmptyReceipt_NeverCollides(t *testing.T) {
	env := newTestEnv(t)

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	mustPayment(t, env, profile.ID, 100, "")
	mustPayment(t, env, profile.ID, 200, "")
}

// =============================================================================
// HISTORY ORDER
// =============================================================================

func TestLedger_History_CommitOrder_StableUnderBackdating(t *testing.T) {
	// GIVEN: a backdated entry recorded after a current-dated one
	// WHEN: reading history
	// THEN: order is commit order, not paid_at order

	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	mustPayment(t, env, profile.ID, 100, "RCP-001")

	backdated := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	_, err := env.ledger.Record(ctx, fees.RecordParams{
		ProfileID: profile.ID,
		Amount:    money.FromRupees(200),
		Frequency: fees.FrequencyMonthly,
		PaidAt:    &backdated,
	})
	require.NoError(t, err)

	history, err := env.ledger.History(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, money.FromRupees(100), history[0].Amount)
	assert.Equal(t, money.FromRupees(200), history[1].Amount)
	assert.True(t, history[0].ID < history[1].ID)
}

// =============================================================================
// REVERSALS
// =============================================================================

func TestLedger_Reverse_NetsOutAndKeepsBothRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	payment := mustPayment(t, env, profile.ID, 4000, "RCP-001")

	reversal, err := env.ledger.Reverse(ctx, payment.ID, "recorded against wrong student", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, fees.EntryReversal, reversal.Kind)
	assert.Equal(t, money.FromRupees(-4000), reversal.Amount)
	assert.Equal(t, payment.ID, reversal.ReversalOf)

	paid, err := env.ledger.TotalPaid(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsZero())

	history, err := env.ledger.History(ctx, profile.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "both rows stay in the ledger")
}

func TestLedger_Reverse_Twice_Rejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)
	payment := mustPayment(t, env, profile.ID, 4000, "RCP-001")

	_, err := env.ledger.Reverse(ctx, payment.ID, "mistake", "admin-1")
	require.NoError(t, err)

	_, err = env.ledger.Reverse(ctx, payment.ID, "mistake again", "admin-1")
	assert.ErrorIs(t, err, fees.ErrAlreadyReversed)
}

func TestLedger_Reverse_OfReversal_Rejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)
	payment := mustPayment(t, env, profile.ID, 4000, "RCP-001")

	reversal, err := env.ledger.Reverse(ctx, payment.ID, "mistake", "admin-1")
	require.NoError(t, err)

	_, err = env.ledger.Reverse(ctx, reversal.ID, "undo the undo", "admin-1")
	assert.ErrorIs(t, err, fees.ErrNotReversible)
}

// =============================================================================
// VERIFICATION
// =============================================================================

func TestLedger_Verify_TogglesFlagNotTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)
	payment := mustPayment(t, env, profile.ID, 4000, "RCP-001")

	remarks := "bank transfer pending"
	updated, err := env.ledger.Verify(ctx, payment.ID, false, &remarks)
	require.NoError(t, err)
	assert.False(t, updated.Verified)
	assert.Equal(t, remarks, updated.Remarks)

	paid, err := env.ledger.TotalPaid(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, money.FromRupees(4000), paid, "unverified entries still count")
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestLedger_ConcurrentRecords_AllLand(t *testing.T) {
	// GIVEN: 20 goroutines each record 100 against the same profile
	// WHEN: they all finish
	// THEN: total paid is exactly 2000 and history holds 20 rows

	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.ledger.Record(ctx, fees.RecordParams{
				ProfileID:     profile.ID,
				Amount:        money.FromRupees(100),
				Frequency:     fees.FrequencyMonthly,
				ReceiptNumber: fmt.Sprintf("RCP-%03d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	paid, err := env.ledger.TotalPaid(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, money.FromRupees(2000), paid)

	history, err := env.ledger.History(ctx, profile.ID)
	require.NoError(t, err)
	assert.Len(t, history, n)
}

func TestLedger_Record_HeldLock_Busy(t *testing.T) {
	// GIVEN: another writer holds the profile lock past the bounded wait
	// WHEN: recording a payment for that profile
	// THEN: fails fast with ErrBusy, and succeeds once released

	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	release, err := env.locks.Acquire(ctx, profile.ID)
	require.NoError(t, err)

	_, err = env.ledger.Record(ctx, fees.RecordParams{
		ProfileID: profile.ID,
		Amount:    money.FromRupees(100),
		Frequency: fees.FrequencyMonthly,
	})
	assert.ErrorIs(t, err, fees.ErrBusy)
	assert.True(t, fees.IsRetryable(err))

	release()

	_, err = env.ledger.Record(ctx, fees.RecordParams{
		ProfileID: profile.ID,
		Amount:    money.FromRupees(100),
		Frequency: fees.FrequencyMonthly,
	})
	assert.NoError(t, err)
}
