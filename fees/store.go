/*
store.go - Persistence interfaces for structures, profiles and payments

PURPOSE:
  Defines the interface between the domain services and the database.
  Different implementations can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  The payment table is append-only: AppendPayment is the only way a row
  gets in, and no method edits Amount. The single sanctioned mutation is
  the verification flag, which is informational metadata and never part
  of ledger totals. Corrections are reversal entries.

ORDERING:
  PaymentID is a monotonic sequence assigned on append. LoadPayments
  returns ascending PaymentID - commit order, not paid_at order - so the
  audit trail stays stable when entries are backdated.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - fees/store:   in-memory store for tests and dev

SEE ALSO:
  - ledger.go, profiles.go, structures.go: service-level callers
*/
package fees

import (
	"context"

	"github.com/warp/fee-ledger/money"
)

// Store handles persistence for the three row kinds.
//
// Get* methods return (nil, nil) when the row does not exist; services
// translate that into ErrNotFound. Insert* methods return the matching
// duplicate sentinel on unique-key violation.
type Store interface {
	// Fee structures
	InsertStructure(ctx context.Context, s FeeStructure) error
	UpdateStructure(ctx context.Context, s FeeStructure) error
	GetStructure(ctx context.Context, id StructureID) (*FeeStructure, error)
	GetStructureByClassYear(ctx context.Context, classID ClassID, yearID YearID) (*FeeStructure, error)

	// Student fee profiles
	InsertProfile(ctx context.Context, p StudentFeeProfile) error
	UpdateProfile(ctx context.Context, p StudentFeeProfile) error
	GetProfile(ctx context.Context, id ProfileID) (*StudentFeeProfile, error)
	GetProfileByStudentYear(ctx context.Context, studentID StudentID, yearID YearID) (*StudentFeeProfile, error)
	ListProfilesByStructure(ctx context.Context, structureID StructureID) ([]StudentFeeProfile, error)

	// Payments (append-only)
	AppendPayment(ctx context.Context, p Payment) (PaymentID, error)
	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)
	SetPaymentVerified(ctx context.Context, id PaymentID, verified bool, remarks *string) error
	LoadPayments(ctx context.Context, profileID ProfileID) ([]Payment, error)
	TotalPaid(ctx context.Context, profileID ProfileID) (money.Money, error)
	HasPayments(ctx context.Context, profileID ProfileID) (bool, error)
	ReceiptExists(ctx context.Context, yearID YearID, receiptNumber string) (bool, error)
	HasReversal(ctx context.Context, original PaymentID) (bool, error)
}

// TxStore wraps Store with transaction support.
// Read-then-write sequences that decide on payable/paid totals run inside
// WithTx so no operation observes stale totals when accepting a write.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
