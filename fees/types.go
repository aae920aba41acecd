/*
Package fees implements the fee ledger and payment reconciliation engine.

PURPOSE:
  This package contains the domain types and services for school fee
  management: per-class fee structures, per-student fee profiles with
  concessions and transport surcharges, an append-only payment ledger,
  and reconciliation of collection status.

KEY CONCEPTS IN THIS FILE (types.go):
  - FeeStructure: per-(class, academic year) template of charges
  - StudentFeeProfile: per-(student, academic year) instance of a structure
  - Payment: an immutable ledger entry against a profile
  - ProfileStatus / ClassFeeSummary: derived, never-persisted views

DESIGN PRINCIPLES:
  1. Immutability: payment amounts are never edited, only reversed
  2. Derived state: total payable, total paid and status are always
     recomputed from live rows, never stored
  3. Type safety: strong typing for ids prevents mixing student/class ids
  4. Integer money: all amounts are money.Money minor units

SEE ALSO:
  - errors.go: error taxonomy
  - ledger.go: payment ledger operations
  - reconcile.go: status derivation
  - lockstate.go: mutation guard state machine
*/
package fees

import (
	"time"

	"github.com/warp/fee-ledger/money"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	StructureID string
	ProfileID   string
	StudentID   string
	ClassID     string
	YearID      string
	ActorID     string
)

// PaymentID is the ledger sequence id, assigned by the store on append.
// Ascending PaymentID is commit order, which keeps audit order stable
// even when paid_at is backdated.
type PaymentID int64

// =============================================================================
// ENUMS
// =============================================================================

type PaymentFrequency string

const (
	FrequencyMonthly    PaymentFrequency = "MONTHLY"
	FrequencyQuarterly  PaymentFrequency = "QUARTERLY"
	FrequencyHalfYearly PaymentFrequency = "HALF_YEARLY"
	FrequencyYearly     PaymentFrequency = "YEARLY"
)

func (f PaymentFrequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyHalfYearly, FrequencyYearly:
		return true
	}
	return false
}

// EntryKind distinguishes original payments from reversal entries.
type EntryKind string

const (
	EntryPayment  EntryKind = "payment"
	EntryReversal EntryKind = "reversal"
)

type CollectionStatus string

const (
	StatusPaid    CollectionStatus = "PAID"
	StatusPartial CollectionStatus = "PARTIAL"
	StatusPending CollectionStatus = "PENDING"
)

// =============================================================================
// FEE STRUCTURE - per (class, academic year) template
// =============================================================================

// FeeStructure defines the charges for one class in one academic year.
// Exactly one structure may exist per (ClassID, YearID) pair.
type FeeStructure struct {
	ID            StructureID
	ClassID       ClassID
	YearID        YearID
	AnnualCharges money.Money // one-time, >= 0
	MonthlyFee    money.Money // recurring, > 0
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AnnualTotal is the full-year charge: annual charges plus twelve months
// of tuition. Always computed from the live amounts, never cached.
func (s FeeStructure) AnnualTotal() money.Money {
	return s.AnnualCharges.Add(s.MonthlyFee.MulInt(12))
}

// =============================================================================
// STUDENT FEE PROFILE - per (student, academic year) instance
// =============================================================================

// StudentFeeProfile attaches one student to a FeeStructure for a year,
// adjusted by transport charges and a concession.
type StudentFeeProfile struct {
	ID          ProfileID
	StudentID   StudentID
	StudentName string // display name from the identity collaborator
	StructureID StructureID
	YearID      YearID

	TransportCharges money.Money // default 0, >= 0
	TransportLocked  bool
	ConcessionAmount money.Money // default 0, >= 0
	ConcessionReason string

	Locked bool // explicit admin lock against financial edits
	Active bool // false after soft-deactivation; never physically deleted

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalPayable derives the amount this profile owes from its structure.
// Invariant: never negative; writes that would violate this are rejected.
func (p StudentFeeProfile) TotalPayable(s FeeStructure) money.Money {
	return s.AnnualTotal().Add(p.TransportCharges).Sub(p.ConcessionAmount)
}

// =============================================================================
// PAYMENT - append-only ledger entry
// =============================================================================

// Payment records money received against a profile. Rows are append-only:
// a correction is a new reversal entry referencing the original, never an
// in-place edit of Amount.
type Payment struct {
	ID        PaymentID
	ProfileID ProfileID
	YearID    YearID // denormalized from the profile; scopes receipt uniqueness

	Amount        money.Money // > 0 for payments, < 0 for reversal entries
	Frequency     PaymentFrequency
	ReceiptNumber string // unique within YearID when present
	PaidAt        time.Time
	Remarks       string

	Kind       EntryKind
	ReversalOf PaymentID // set on reversal entries; 0 otherwise

	// Verified is informational (cash entries recorded by an admin are
	// considered settled on entry); it never filters ledger totals.
	Verified   bool
	RecordedBy ActorID
	CreatedAt  time.Time
}

// =============================================================================
// DERIVED VIEWS - computed on read, never persisted
// =============================================================================

// ProfileStatus is the reconciliation result for one profile.
type ProfileStatus struct {
	ProfileID    ProfileID
	TotalPayable money.Money
	TotalPaid    money.Money
	Pending      money.Money
	Status       CollectionStatus
}

// StudentStatus is one row of a class summary.
type StudentStatus struct {
	ProfileID   ProfileID
	StudentID   StudentID
	StudentName string
	ProfileStatus
}

// ClassFeeSummary aggregates expected vs collected amounts across the
// active profiles of one (class, academic year).
type ClassFeeSummary struct {
	ClassID ClassID
	YearID  YearID

	TotalStudents  int
	Inactive       int // deactivated profiles, excluded from aggregates
	TotalExpected  money.Money
	TotalCollected money.Money
	TotalPending   money.Money

	// CollectionPercentage is rounded for display only; it is never fed
	// back into monetary computation.
	CollectionPercentage float64

	// Students is ordered ascending by display name, ties broken by
	// student id.
	Students []StudentStatus
}
