/*
profiles.go - StudentFeeProfile store operations

PURPOSE:
  Create (individually or in bulk), update and look up per-student fee
  profiles, enforcing every §-style guard at the write boundary:
  concession ceiling, non-negative payable, duplicate prevention,
  below-paid protection, and the explicit lock state machine.

LOCKING:
  Financial edits on a locked profile are rejected unless the same call
  explicitly unlocks it. Transport edits respect the independent
  transport lock. Every unlock is logged with the acting admin.

BULK CREATE:
  Partial-success model: per-student collisions are reported as skipped,
  never failing the whole batch. An unknown structure id is a
  caller-level error and fails the batch immediately. Idempotent: the
  second run with the same student set skips everything.
*/
package fees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/warp/fee-ledger/money"
)

// Profiles manages StudentFeeProfile rows.
type Profiles struct {
	store TxStore
	locks *ProfileLocks
	log   *slog.Logger
}

func NewProfiles(store TxStore, locks *ProfileLocks, logger *slog.Logger) *Profiles {
	if logger == nil {
		logger = slog.Default()
	}
	return &Profiles{store: store, locks: locks, log: logger}
}

// CreateProfileParams carries the inputs for a single profile.
type CreateProfileParams struct {
	StudentID        StudentID
	StudentName      string
	StructureID      StructureID
	TransportCharges money.Money
	ConcessionAmount money.Money
	ConcessionReason string
}

// Create adds a profile for one student against a fee structure.
// The academic year is taken from the structure.
func (p *Profiles) Create(ctx context.Context, params CreateProfileParams) (*StudentFeeProfile, error) {
	structure, err := p.store.GetStructure(ctx, params.StructureID)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, fmt.Errorf("structure %s: %w", params.StructureID, ErrNotFound)
	}

	if err := validateProfileAmounts(*structure, params.TransportCharges, params.ConcessionAmount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profile := StudentFeeProfile{
		ID:               ProfileID(uuid.NewString()),
		StudentID:        params.StudentID,
		StudentName:      params.StudentName,
		StructureID:      structure.ID,
		YearID:           structure.YearID,
		TransportCharges: params.TransportCharges,
		ConcessionAmount: params.ConcessionAmount,
		ConcessionReason: params.ConcessionReason,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := p.store.InsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// BulkStudent is one student in a bulk import.
type BulkStudent struct {
	StudentID   StudentID
	StudentName string
}

// BulkResult reports per-item outcomes of a bulk create.
type BulkResult struct {
	Created []StudentFeeProfile
	Skipped []StudentID
}

// BulkCreate creates profiles for many students against one structure.
// Existing profiles for a student in that year are skipped, not
// overwritten. Invalid defaults or an unknown structure fail the whole
// batch before any row is written.
func (p *Profiles) BulkCreate(ctx context.Context, structureID StructureID, students []BulkStudent, defaultTransport, defaultConcession money.Money) (*BulkResult, error) {
	structure, err := p.store.GetStructure(ctx, structureID)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, fmt.Errorf("structure %s: %w", structureID, ErrNotFound)
	}
	if err := validateProfileAmounts(*structure, defaultTransport, defaultConcession); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for _, st := range students {
		existing, err := p.store.GetProfileByStudentYear(ctx, st.StudentID, structure.YearID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			result.Skipped = append(result.Skipped, st.StudentID)
			continue
		}

		now := time.Now().UTC()
		profile := StudentFeeProfile{
			ID:               ProfileID(uuid.NewString()),
			StudentID:        st.StudentID,
			StudentName:      st.StudentName,
			StructureID:      structure.ID,
			YearID:           structure.YearID,
			TransportCharges: defaultTransport,
			ConcessionAmount: defaultConcession,
			Active:           true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		err = p.store.InsertProfile(ctx, profile)
		if errors.Is(err, ErrDuplicateProfile) {
			// Lost a race with a concurrent create; same outcome as skip.
			result.Skipped = append(result.Skipped, st.StudentID)
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Created = append(result.Created, profile)
	}

	p.log.Info("bulk profile create",
		"structure_id", structureID,
		"created", len(result.Created),
		"skipped", len(result.Skipped))
	return result, nil
}

// ProfileUpdate is a partial edit; nil fields keep current values.
// SetLocked / SetTransportLocked are explicit lock transitions: passing
// false is the explicit unlock required to edit a locked field in the
// same call.
type ProfileUpdate struct {
	TransportCharges   *money.Money
	ConcessionAmount   *money.Money
	ConcessionReason   *string
	SetLocked          *bool
	SetTransportLocked *bool
	Actor              ActorID
}

// Update edits a profile under its per-profile lock.
// Guard order: lock state first, then amount validity, then the
// below-paid invariant against the committed paid total.
func (p *Profiles) Update(ctx context.Context, id ProfileID, u ProfileUpdate) (*StudentFeeProfile, error) {
	release, err := p.locks.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *StudentFeeProfile
	var unlocked, transportUnlocked bool

	err = p.store.WithTx(ctx, func(tx Store) error {
		profile, err := tx.GetProfile(ctx, id)
		if err != nil {
			return err
		}
		if profile == nil {
			return fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		structure, err := tx.GetStructure(ctx, profile.StructureID)
		if err != nil {
			return err
		}
		if structure == nil {
			return fmt.Errorf("structure %s: %w", profile.StructureID, ErrNotFound)
		}

		// Explicit unlocks take effect before guard checks so the same
		// call can unlock and edit.
		if u.SetLocked != nil && !*u.SetLocked && profile.Locked {
			profile.Locked = false
			unlocked = true
		}
		if u.SetTransportLocked != nil && !*u.SetTransportLocked && profile.TransportLocked {
			profile.TransportLocked = false
			transportUnlocked = true
		}

		financialEdit := u.TransportCharges != nil || u.ConcessionAmount != nil
		if profile.Locked && financialEdit {
			return fmt.Errorf("profile %s: %w", id, ErrProfileLocked)
		}
		if profile.TransportLocked && u.TransportCharges != nil {
			return fmt.Errorf("profile %s transport: %w", id, ErrProfileLocked)
		}

		if u.TransportCharges != nil {
			profile.TransportCharges = *u.TransportCharges
		}
		if u.ConcessionAmount != nil {
			profile.ConcessionAmount = *u.ConcessionAmount
		}
		if u.ConcessionReason != nil {
			profile.ConcessionReason = *u.ConcessionReason
		}
		if err := validateProfileAmounts(*structure, profile.TransportCharges, profile.ConcessionAmount); err != nil {
			return err
		}

		if financialEdit {
			has, err := tx.HasPayments(ctx, id)
			if err != nil {
				return err
			}
			if has {
				paid, err := tx.TotalPaid(ctx, id)
				if err != nil {
					return err
				}
				newPayable := profile.TotalPayable(*structure)
				if newPayable.LessThan(paid) {
					return &BelowPaidError{ProfileID: id, NewPayable: newPayable, TotalPaid: paid}
				}
			}
		}

		if u.SetLocked != nil && *u.SetLocked {
			profile.Locked = true
		}
		if u.SetTransportLocked != nil && *u.SetTransportLocked {
			profile.TransportLocked = true
		}

		profile.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateProfile(ctx, *profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Unlocks are audited: who reopened a locked profile, and when.
	if unlocked {
		p.log.Info("profile unlocked", "profile_id", id, "actor", u.Actor)
	}
	if transportUnlocked {
		p.log.Info("profile transport unlocked", "profile_id", id, "actor", u.Actor)
	}
	if u.SetLocked != nil && *u.SetLocked {
		p.log.Info("profile locked", "profile_id", id, "actor", u.Actor)
	}
	return updated, nil
}

// Deactivate soft-deletes a profile. Rows referenced by payments are
// never physically deleted; a deactivated profile keeps its ledger and
// status but drops out of class aggregates.
func (p *Profiles) Deactivate(ctx context.Context, id ProfileID, actor ActorID) (*StudentFeeProfile, error) {
	release, err := p.locks.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *StudentFeeProfile
	err = p.store.WithTx(ctx, func(tx Store) error {
		profile, err := tx.GetProfile(ctx, id)
		if err != nil {
			return err
		}
		if profile == nil {
			return fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		profile.Active = false
		profile.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateProfile(ctx, *profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("profile deactivated", "profile_id", id, "actor", actor)
	return updated, nil
}

// Get returns a profile by id, or ErrNotFound.
func (p *Profiles) Get(ctx context.Context, id ProfileID) (*StudentFeeProfile, error) {
	profile, err := p.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return profile, nil
}

// GetByStudentYear returns the profile for (student, year), or ErrNotFound.
func (p *Profiles) GetByStudentYear(ctx context.Context, studentID StudentID, yearID YearID) (*StudentFeeProfile, error) {
	profile, err := p.store.GetProfileByStudentYear(ctx, studentID, yearID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile for student %s year %s: %w", studentID, yearID, ErrNotFound)
	}
	return profile, nil
}

// LockState reports the mutation-guard state of a profile.
func (p *Profiles) LockState(ctx context.Context, id ProfileID) (LockState, error) {
	profile, err := p.Get(ctx, id)
	if err != nil {
		return "", err
	}
	has, err := p.store.HasPayments(ctx, id)
	if err != nil {
		return "", err
	}
	return LockStateOf(*profile, has), nil
}

// validateProfileAmounts enforces non-negative charges and the concession
// ceiling; the ceiling check is exactly the non-negative-payable
// invariant, so violations are rejected, never clamped.
func validateProfileAmounts(structure FeeStructure, transport, concession money.Money) error {
	if transport.IsNegative() {
		return fmt.Errorf("transport charges %s: %w", transport, ErrInvalidAmount)
	}
	if concession.IsNegative() {
		return fmt.Errorf("concession %s: %w", concession, ErrInvalidAmount)
	}
	ceiling, err := structure.AnnualTotal().AddChecked(transport)
	if err != nil {
		return fmt.Errorf("transport charges %s: %w", transport, ErrInvalidAmount)
	}
	if concession.GreaterThan(ceiling) {
		return &ConcessionError{Concession: concession, Ceiling: ceiling}
	}
	return nil
}
