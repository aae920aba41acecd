/*
reconcile.go - Collection status derivation

PURPOSE:
  Derives per-profile status and class-level summaries. Status is a pure
  function of structure + profile + ledger state, recomputed on every
  read - it is never stored, so it cannot drift from the ledger.

STATUS RULE:
  PAID     pending <= 0
  PARTIAL  0 < total_paid < total_payable
  PENDING  otherwise

NUMERIC SEMANTICS:
  Monetary sums are integer minor-unit arithmetic throughout. The
  collection percentage is decimal-rounded for display only.
*/
package fees

import (
	"context"
	"fmt"
	"sort"

	"github.com/warp/fee-ledger/money"
)

// Reconciler computes derived collection views.
// Reads are snapshot-consistent: they reflect committed payments only
// and never block in-flight writes for other profiles.
type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// StatusFor derives the reconciliation status of one profile.
func (r *Reconciler) StatusFor(ctx context.Context, profileID ProfileID) (*ProfileStatus, error) {
	profile, err := r.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}
	structure, err := r.store.GetStructure(ctx, profile.StructureID)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, fmt.Errorf("structure %s: %w", profile.StructureID, ErrNotFound)
	}
	paid, err := r.store.TotalPaid(ctx, profileID)
	if err != nil {
		return nil, err
	}
	status := statusOf(profile.TotalPayable(*structure), paid)
	status.ProfileID = profileID
	return &status, nil
}

// ClassSummary aggregates every active profile of the (class, year)'s
// structure. The aggregate is recomputed per call from the same reads as
// StatusFor, so total_collected always equals the sum of per-profile
// paid totals.
func (r *Reconciler) ClassSummary(ctx context.Context, classID ClassID, yearID YearID) (*ClassFeeSummary, error) {
	structure, err := r.store.GetStructureByClassYear(ctx, classID, yearID)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, fmt.Errorf("structure for class %s year %s: %w", classID, yearID, ErrNotFound)
	}

	profiles, err := r.store.ListProfilesByStructure(ctx, structure.ID)
	if err != nil {
		return nil, err
	}

	summary := &ClassFeeSummary{ClassID: classID, YearID: yearID}
	for _, p := range profiles {
		if !p.Active {
			summary.Inactive++
			continue
		}
		paid, err := r.store.TotalPaid(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		st := statusOf(p.TotalPayable(*structure), paid)
		st.ProfileID = p.ID

		summary.Students = append(summary.Students, StudentStatus{
			ProfileID:     p.ID,
			StudentID:     p.StudentID,
			StudentName:   p.StudentName,
			ProfileStatus: st,
		})
		summary.TotalStudents++
		summary.TotalExpected = summary.TotalExpected.Add(st.TotalPayable)
		summary.TotalCollected = summary.TotalCollected.Add(st.TotalPaid)
	}

	summary.TotalPending = summary.TotalExpected.Sub(summary.TotalCollected)
	summary.CollectionPercentage = money.Percent(summary.TotalCollected, summary.TotalExpected)

	// Ascending by display name, stable for equal names by student id.
	sort.Slice(summary.Students, func(i, j int) bool {
		a, b := summary.Students[i], summary.Students[j]
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.StudentID < b.StudentID
	})

	return summary, nil
}

// DefaulterList returns only the PARTIAL and PENDING rows of the class
// summary, in the same ordering.
func (r *Reconciler) DefaulterList(ctx context.Context, classID ClassID, yearID YearID) ([]StudentStatus, error) {
	summary, err := r.ClassSummary(ctx, classID, yearID)
	if err != nil {
		return nil, err
	}
	var defaulters []StudentStatus
	for _, s := range summary.Students {
		if s.Status != StatusPaid {
			defaulters = append(defaulters, s)
		}
	}
	return defaulters, nil
}

func statusOf(payable, paid money.Money) ProfileStatus {
	pending := payable.Sub(paid)
	status := StatusPending
	switch {
	case pending.IsZero() || pending.IsNegative():
		status = StatusPaid
	case paid.IsPositive() && paid.LessThan(payable):
		status = StatusPartial
	}
	return ProfileStatus{
		TotalPayable: payable,
		TotalPaid:    paid,
		Pending:      pending,
		Status:       status,
	}
}
