/*
errors.go - Centralized error types for the fee engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every kind the calling UI needs to distinguish is a sentinel usable
  with errors.Is; the structured types below carry the context a caller
  renders into a message.

ERROR CATEGORIES:
  1. Duplicates   - structure / profile / receipt collisions
  2. Validation   - invalid amounts, concession ceiling
  3. Locking      - structure / profile mutation guards
  4. Transient    - Busy (profile-lock contention, the only retryable kind)

PROPAGATION POLICY:
  Every validation runs at the service boundary before any persistent
  write; partial writes never occur. Busy is retryable with backoff; all
  other kinds are terminal for the request and surfaced verbatim.

SEE ALSO:
  - structures.go, profiles.go, ledger.go: produce these errors
  - api/handlers.go: maps them to HTTP statuses
*/
package fees

import (
	"errors"
	"fmt"

	"github.com/warp/fee-ledger/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateStructure is returned when a fee structure already
	// exists for the (class, academic year) pair.
	ErrDuplicateStructure = errors.New("fee structure already exists for class and year")

	// ErrDuplicateProfile is returned when a student already has a fee
	// profile for the academic year.
	ErrDuplicateProfile = errors.New("fee profile already exists for student and year")

	// ErrDuplicateReceipt is returned when a receipt number is already
	// used within the profile's academic year.
	ErrDuplicateReceipt = errors.New("receipt number already used for this academic year")

	// ErrInvalidAmount is returned for negative charges, non-positive
	// monthly fees or payments, or amounts that overflow.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidFrequency is returned for an unknown payment frequency.
	ErrInvalidFrequency = errors.New("invalid payment frequency")

	// ErrConcessionExceedsPayable is returned when a concession is larger
	// than annual total plus transport charges.
	ErrConcessionExceedsPayable = errors.New("concession exceeds total payable")

	// ErrStructureLocked is returned when a structure edit would drop a
	// paying profile's total payable below its cumulative paid amount.
	ErrStructureLocked = errors.New("structure locked by recorded payments")

	// ErrProfileLocked is returned when a financial-field edit hits a
	// locked profile (or a transport edit hits a transport-locked one)
	// without an explicit unlock in the same call.
	ErrProfileLocked = errors.New("profile locked")

	// ErrBelowPaidAmount is returned when a profile edit would set total
	// payable below the cumulative paid total.
	ErrBelowPaidAmount = errors.New("total payable would drop below paid amount")

	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBusy is returned when the per-profile lock cannot be acquired
	// within the bounded timeout. The only retryable kind.
	ErrBusy = errors.New("profile busy, retry")

	// ErrAlreadyReversed is returned when a payment already has a
	// reversal entry.
	ErrAlreadyReversed = errors.New("payment already reversed")

	// ErrNotReversible is returned when trying to reverse a reversal
	// entry.
	ErrNotReversible = errors.New("entry is not reversible")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// BelowPaidError details a profile edit rejected for undercutting the
// amount already collected.
type BelowPaidError struct {
	ProfileID  ProfileID
	NewPayable money.Money
	TotalPaid  money.Money
}

func (e *BelowPaidError) Error() string {
	return fmt.Sprintf("profile %s: new total payable %s is below paid amount %s",
		e.ProfileID, e.NewPayable.Rupees(), e.TotalPaid.Rupees())
}

func (e *BelowPaidError) Unwrap() error { return ErrBelowPaidAmount }

// StructureLockedError names the profile that blocks a structure edit.
type StructureLockedError struct {
	StructureID StructureID
	ProfileID   ProfileID
	NewPayable  money.Money
	TotalPaid   money.Money
}

func (e *StructureLockedError) Error() string {
	return fmt.Sprintf("structure %s: profile %s has %s paid, edit would set payable to %s",
		e.StructureID, e.ProfileID, e.TotalPaid.Rupees(), e.NewPayable.Rupees())
}

func (e *StructureLockedError) Unwrap() error { return ErrStructureLocked }

// ConcessionError details a concession ceiling violation.
type ConcessionError struct {
	Concession money.Money
	Ceiling    money.Money // annual total + transport charges
}

func (e *ConcessionError) Error() string {
	return fmt.Sprintf("concession %s exceeds payable ceiling %s",
		e.Concession.Rupees(), e.Ceiling.Rupees())
}

func (e *ConcessionError) Unwrap() error { return ErrConcessionExceedsPayable }

// DuplicateReceiptError identifies the colliding receipt.
type DuplicateReceiptError struct {
	ReceiptNumber string
	YearID        YearID
}

func (e *DuplicateReceiptError) Error() string {
	return fmt.Sprintf("receipt %q already used in academic year %s", e.ReceiptNumber, e.YearID)
}

func (e *DuplicateReceiptError) Unwrap() error { return ErrDuplicateReceipt }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
// Busy is the only retryable kind; callers retry with backoff, bounded.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsClientError returns true if the error is due to invalid client input
// or a business-rule conflict, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateStructure) ||
		errors.Is(err, ErrDuplicateProfile) ||
		errors.Is(err, ErrDuplicateReceipt) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrConcessionExceedsPayable) ||
		errors.Is(err, ErrStructureLocked) ||
		errors.Is(err, ErrProfileLocked) ||
		errors.Is(err, ErrBelowPaidAmount) ||
		errors.Is(err, ErrAlreadyReversed) ||
		errors.Is(err, ErrNotReversible)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
