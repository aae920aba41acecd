package fees_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/fee-ledger/fees"
	"github.com/warp/fee-ledger/money"
)

// =============================================================================
// CREATION
// =============================================================================

func TestProfiles_Create_YearComesFromStructure(t *testing.T) {
	env := newTestEnv(t)

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	assert.Equal(t, fees.YearID("2025-26"), profile.YearID)
	assert.True(t, profile.Active)
	assert.False(t, profile.Locked)
}

func TestProfiles_Create_DuplicateStudentYear_Rejected(t *testing.T) {
	// GIVEN: stu-1 already has a profile for 2025-26
	// WHEN: creating another one, even against a different class
	// THEN: rejected with ErrDuplicateProfile; next year is fine

	env := newTestEnv(t)
	ctx := context.Background()

	s1 := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	s2 := mustStructure(t, env, "class-5b", "2025-26", 5000, 500)
	s3 := mustStructure(t, env, "class-6a", "2026-27", 5000, 500)
	mustProfile(t, env, "stu-1", s1.ID, 0, 0)

	_, err := env.profiles.Create(ctx, fees.CreateProfileParams{
		StudentID: "stu-1", StudentName: "Student stu-1", StructureID: s2.ID,
	})
	assert.ErrorIs(t, err, fees.ErrDuplicateProfile)

	_, err = env.profiles.Create(ctx, fees.CreateProfileParams{
		StudentID: "stu-1", StudentName: "Student stu-1", StructureID: s3.ID,
	})
	assert.NoError(t, err)
}

func TestProfiles_Create_ConcessionCeiling(t *testing.T) {
	// Concession may not exceed annual total plus transport.
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500) // total 11000

	_, err := env.profiles.Create(ctx, fees.CreateProfileParams{
		StudentID:        "stu-1",
		StudentName:      "Student stu-1",
		StructureID:      structure.ID,
		TransportCharges: money.FromRupees(1000),
		ConcessionAmount: money.FromRupees(12001),
	})
	assert.ErrorIs(t, err, fees.ErrConcessionExceedsPayable)
	var concErr *fees.ConcessionError
	require.ErrorAs(t, err, &concErr)
	assert.Equal(t, money.FromRupees(12000), concErr.Ceiling)

	// Full-waiver concession exactly at the ceiling is allowed.
	_, err = env.profiles.Create(ctx, fees.CreateProfileParams{
		StudentID:        "stu-2",
		StudentName:      "Student stu-2",
		StructureID:      structure.ID,
		TransportCharges: money.FromRupees(1000),
		ConcessionAmount: money.FromRupees(12000),
	})
	assert.NoError(t, err)
}

// =============================================================================
// BULK CREATION
// =============================================================================

func TestProfiles_BulkCreate_SkipsExisting(t *testing.T) {
	// GIVEN: stu-2 already has a profile for the year
	// WHEN: bulk-importing stu-1..stu-3
	// THEN: stu-1 and stu-3 are created, stu-2 is reported skipped

	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	mustProfile(t, env, "stu-2", structure.ID, 0, 0)

	result, err := env.profiles.BulkCreate(ctx, structure.ID, []fees.BulkStudent{
		{StudentID: "stu-1", StudentName: "Anaya"},
		{StudentID: "stu-2", StudentName: "Bilal"},
		{StudentID: "stu-3", StudentName: "Chitra"},
	}, money.FromRupees(500), money.FromPaise(0))

	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	assert.Equal(t, []fees.StudentID{"stu-2"}, result.Skipped)
	for _, p := range result.Created {
		assert.Equal(t, money.FromRupees(500), p.TransportCharges)
	}
}

func TestProfiles_BulkCreate_UnknownStructure_FailsBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.profiles.BulkCreate(ctx, "no-such-structure", []fees.BulkStudent{
		{StudentID: "stu-1", StudentName: "Anaya"},
	}, money.FromPaise(0), money.FromPaise(0))

	assert.ErrorIs(t, err, fees.ErrNotFound)
}

// =============================================================================
// LOCK GUARDS
// =============================================================================

func TestProfiles_Update_LockedProfile_RejectsFinancialEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	locked := true
	_, err := env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{SetLocked: &locked})
	require.NoError(t, err)

	conc := money.FromRupees(100)
	_, err = env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{ConcessionAmount: &conc})
	assert.ErrorIs(t, err, fees.ErrProfileLocked)

	// Non-financial fields stay editable while locked.
	reason := "sibling discount"
	_, err = env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{ConcessionReason: &reason})
	assert.NoError(t, err)
}

func TestProfiles_Update_UnlockAndEditInOneCall(t *testing.T) {
	// An explicit unlock takes effect before the guard check, so a
	// single call can reopen a profile and apply the edit.
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	locked := true
	_, err := env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{SetLocked: &locked})
	require.NoError(t, err)

	unlocked := false
	conc := money.FromRupees(100)
	updated, err := env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{
		SetLocked:        &unlocked,
		ConcessionAmount: &conc,
		Actor:            "admin-1",
	})
	require.NoError(t, err)
	assert.False(t, updated.Locked)
	assert.Equal(t, money.FromRupees(100), updated.ConcessionAmount)
}

func TestProfiles_Update_TransportLock_IsIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 500, 0)

	tl := true
	_, err := env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{SetTransportLocked: &tl})
	require.NoError(t, err)

	transport := money.FromRupees(800)
	_, err = env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{TransportCharges: &transport})
	assert.ErrorIs(t, err, fees.ErrProfileLocked)

	// Concession edits are unaffected by the transport lock.
	conc := money.FromRupees(200)
	_, err = env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{ConcessionAmount: &conc})
	assert.NoError(t, err)
}

// =============================================================================
// BELOW-PAID INVARIANT
// =============================================================================

func TestProfiles_Update_BelowPaid_Rejected(t *testing.T) {
	// GIVEN: 8000 collected against a payable of 11000
	// WHEN: a concession raise would drop payable to 7000
	// THEN: rejected with BelowPaidError carrying both amounts

	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)
	mustPayment(t, env, profile.ID, 8000, "RCP-001")

	conc := money.FromRupees(4000)
	_, err := env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{ConcessionAmount: &conc})

	assert.ErrorIs(t, err, fees.ErrBelowPaidAmount)
	var bpErr *fees.BelowPaidError
	require.ErrorAs(t, err, &bpErr)
	assert.Equal(t, money.FromRupees(7000), bpErr.NewPayable)
	assert.Equal(t, money.FromRupees(8000), bpErr.TotalPaid)

	// Dropping payable exactly to the paid total is allowed.
	conc = money.FromRupees(3000)
	updated, err := env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{ConcessionAmount: &conc})
	require.NoError(t, err)
	assert.Equal(t, money.FromRupees(3000), updated.ConcessionAmount)
}

// =============================================================================
// DEACTIVATION
// =============================================================================

func TestProfiles_Deactivate_KeepsLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)
	mustPayment(t, env, profile.ID, 4000, "RCP-001")

	updated, err := env.profiles.Deactivate(ctx, profile.ID, "admin-1")
	require.NoError(t, err)
	assert.False(t, updated.Active)

	// History and status stay readable after deactivation.
	history, err := env.ledger.History(ctx, profile.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	status, err := env.reconciler.StatusFor(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, money.FromRupees(4000), status.TotalPaid)
}

// =============================================================================
// LOCK STATE
// =============================================================================

func TestProfiles_LockState_Transitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	structure := mustStructure(t, env, "class-5a", "2025-26", 5000, 500)
	profile := mustProfile(t, env, "stu-1", structure.ID, 0, 0)

	state, err := env.profiles.LockState(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, fees.LockOpen, state)

	mustPayment(t, env, profile.ID, 1000, "RCP-001")

	state, err = env.profiles.LockState(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, fees.LockPartial, state)

	locked := true
	_, err = env.profiles.Update(ctx, profile.ID, fees.ProfileUpdate{SetLocked: &locked})
	require.NoError(t, err)

	state, err = env.profiles.LockState(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, fees.LockFull, state)
}
