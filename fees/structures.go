/*
structures.go - FeeStructure store operations

PURPOSE:
  Create, update and look up per-(class, year) fee structures, enforcing
  amount validity and the structure-level locking rule: once profiles
  referencing a structure have payments, an amount edit may not drop any
  paying profile's total payable below what it has already paid.

NOTHING IS RECOMPUTED EAGERLY:
  An accepted update only changes the structure row. Total payable is
  always derived on read from the live structure, so referencing profiles
  cannot drift out of sync.
*/
package fees

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/warp/fee-ledger/money"
)

// Structures manages FeeStructure rows.
type Structures struct {
	store TxStore
	log   *slog.Logger
}

func NewStructures(store TxStore, logger *slog.Logger) *Structures {
	if logger == nil {
		logger = slog.Default()
	}
	return &Structures{store: store, log: logger}
}

// Create adds the fee structure for a (class, academic year) pair.
// Fails with ErrDuplicateStructure if one already exists for the pair,
// ErrInvalidAmount if monthlyFee <= 0 or either amount is negative.
func (s *Structures) Create(ctx context.Context, classID ClassID, yearID YearID, annualCharges, monthlyFee money.Money) (*FeeStructure, error) {
	if err := validateStructureAmounts(annualCharges, monthlyFee); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	structure := FeeStructure{
		ID:            StructureID(uuid.NewString()),
		ClassID:       classID,
		YearID:        yearID,
		AnnualCharges: annualCharges,
		MonthlyFee:    monthlyFee,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.InsertStructure(ctx, structure); err != nil {
		return nil, err
	}

	s.log.Info("fee structure created",
		"structure_id", structure.ID,
		"class_id", classID,
		"year_id", yearID,
		"annual_total", structure.AnnualTotal().Rupees())
	return &structure, nil
}

// StructureUpdate is a partial amount edit; nil fields keep current values.
type StructureUpdate struct {
	AnnualCharges *money.Money
	MonthlyFee    *money.Money
}

// Update edits a structure's amounts. Fails with ErrStructureLocked (as a
// StructureLockedError naming the offending profile) if any referencing
// profile with payments would end up owing less than it has paid.
func (s *Structures) Update(ctx context.Context, id StructureID, u StructureUpdate) (*FeeStructure, error) {
	var updated *FeeStructure

	err := s.store.WithTx(ctx, func(tx Store) error {
		structure, err := tx.GetStructure(ctx, id)
		if err != nil {
			return err
		}
		if structure == nil {
			return fmt.Errorf("structure %s: %w", id, ErrNotFound)
		}

		if u.AnnualCharges != nil {
			structure.AnnualCharges = *u.AnnualCharges
		}
		if u.MonthlyFee != nil {
			structure.MonthlyFee = *u.MonthlyFee
		}
		if err := validateStructureAmounts(structure.AnnualCharges, structure.MonthlyFee); err != nil {
			return err
		}

		profiles, err := tx.ListProfilesByStructure(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range profiles {
			has, err := tx.HasPayments(ctx, p.ID)
			if err != nil {
				return err
			}
			if !has {
				continue
			}
			paid, err := tx.TotalPaid(ctx, p.ID)
			if err != nil {
				return err
			}
			newPayable := p.TotalPayable(*structure)
			if newPayable.LessThan(paid) {
				return &StructureLockedError{
					StructureID: id,
					ProfileID:   p.ID,
					NewPayable:  newPayable,
					TotalPaid:   paid,
				}
			}
		}

		structure.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateStructure(ctx, *structure); err != nil {
			return err
		}
		updated = structure
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("fee structure updated",
		"structure_id", updated.ID,
		"annual_total", updated.AnnualTotal().Rupees())
	return updated, nil
}

// Get returns a structure by id, or ErrNotFound.
func (s *Structures) Get(ctx context.Context, id StructureID) (*FeeStructure, error) {
	structure, err := s.store.GetStructure(ctx, id)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, fmt.Errorf("structure %s: %w", id, ErrNotFound)
	}
	return structure, nil
}

// GetByClassYear returns the structure for a (class, year), or ErrNotFound.
func (s *Structures) GetByClassYear(ctx context.Context, classID ClassID, yearID YearID) (*FeeStructure, error) {
	structure, err := s.store.GetStructureByClassYear(ctx, classID, yearID)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, fmt.Errorf("structure for class %s year %s: %w", classID, yearID, ErrNotFound)
	}
	return structure, nil
}

func validateStructureAmounts(annualCharges, monthlyFee money.Money) error {
	if annualCharges.IsNegative() {
		return fmt.Errorf("annual charges %s: %w", annualCharges, ErrInvalidAmount)
	}
	if !monthlyFee.IsPositive() {
		return fmt.Errorf("monthly fee %s: %w", monthlyFee, ErrInvalidAmount)
	}
	// Annual total must fit in int64.
	yearly, err := monthlyFee.MulIntChecked(12)
	if err != nil {
		return fmt.Errorf("monthly fee %s: %w", monthlyFee, ErrInvalidAmount)
	}
	if _, err := annualCharges.AddChecked(yearly); err != nil {
		return fmt.Errorf("annual charges %s: %w", annualCharges, ErrInvalidAmount)
	}
	return nil
}
