/*
ledger.go - Append-only payment ledger

PURPOSE:
  The ledger is the immutable source of truth for money collected.
  Every payment and every reversal is a row; the paid total is always
  computed by summing rows - there is no "paid" column that can drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: no update, no delete of amounts. Ever.
  2. AUDITABLE: history is commit-ordered, stable under backdated paid_at
  3. RECEIPTS: a receipt number is unique within an academic year
  4. CONCURRENT-SAFE: two records for the same profile both land and are
     both reflected in the next total-paid read

CORRECTIONS:
  A mistake is never edited. Reverse() appends a negative entry
  referencing the original; both rows stay in the ledger and the net
  effect is the correction.

VERIFICATION:
  Verified is informational (cash recorded by an admin is settled on
  entry; pending bank reconciliation is out of scope). Toggling it never
  changes totals.

SEE ALSO:
  - store.go: persistence contract
  - reconcile.go: consumes TotalPaid for status derivation
*/
package fees

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/warp/fee-ledger/money"
)

// PaymentLedger records and reads payments against profiles.
type PaymentLedger struct {
	store TxStore
	locks *ProfileLocks
	log   *slog.Logger
	now   func() time.Time
}

func NewPaymentLedger(store TxStore, locks *ProfileLocks, logger *slog.Logger) *PaymentLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentLedger{
		store: store,
		locks: locks,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// RecordParams carries the inputs for one payment entry.
type RecordParams struct {
	ProfileID     ProfileID
	Amount        money.Money
	Frequency     PaymentFrequency
	ReceiptNumber string
	PaidAt        *time.Time // nil = submission time; admins may backdate
	Remarks       string
	RecordedBy    ActorID
	Verified      *bool // nil = true (cash recorded by admin)
}

// Record appends a payment atomically under the profile lock.
// Fails with ErrInvalidAmount if amount <= 0, ErrDuplicateReceipt if the
// receipt number is already used in the profile's academic year, ErrBusy
// on lock contention.
func (l *PaymentLedger) Record(ctx context.Context, params RecordParams) (*Payment, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("payment amount %s: %w", params.Amount, ErrInvalidAmount)
	}
	if !params.Frequency.Valid() {
		return nil, fmt.Errorf("frequency %q: %w", params.Frequency, ErrInvalidFrequency)
	}

	release, err := l.locks.Acquire(ctx, params.ProfileID)
	if err != nil {
		return nil, err
	}
	defer release()

	var recorded *Payment
	err = l.store.WithTx(ctx, func(tx Store) error {
		profile, err := tx.GetProfile(ctx, params.ProfileID)
		if err != nil {
			return err
		}
		if profile == nil {
			return fmt.Errorf("profile %s: %w", params.ProfileID, ErrNotFound)
		}

		if params.ReceiptNumber != "" {
			used, err := tx.ReceiptExists(ctx, profile.YearID, params.ReceiptNumber)
			if err != nil {
				return err
			}
			if used {
				return &DuplicateReceiptError{ReceiptNumber: params.ReceiptNumber, YearID: profile.YearID}
			}
		}

		paidAt := l.now()
		if params.PaidAt != nil {
			paidAt = params.PaidAt.UTC()
		}
		verified := true
		if params.Verified != nil {
			verified = *params.Verified
		}

		payment := Payment{
			ProfileID:     params.ProfileID,
			YearID:        profile.YearID,
			Amount:        params.Amount,
			Frequency:     params.Frequency,
			ReceiptNumber: params.ReceiptNumber,
			PaidAt:        paidAt,
			Remarks:       params.Remarks,
			Kind:          EntryPayment,
			Verified:      verified,
			RecordedBy:    params.RecordedBy,
			CreatedAt:     l.now(),
		}
		id, err := tx.AppendPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		recorded = &payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("payment recorded",
		"payment_id", recorded.ID,
		"profile_id", recorded.ProfileID,
		"amount", recorded.Amount.Rupees(),
		"recorded_by", recorded.RecordedBy)
	return recorded, nil
}

// Reverse appends a negative entry undoing an earlier payment.
// Fails with ErrNotReversible for reversal entries, ErrAlreadyReversed
// if the payment already has a reversal.
func (l *PaymentLedger) Reverse(ctx context.Context, id PaymentID, reason string, actor ActorID) (*Payment, error) {
	original, err := l.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, fmt.Errorf("payment %d: %w", id, ErrNotFound)
	}
	if original.Kind != EntryPayment {
		return nil, fmt.Errorf("payment %d: %w", id, ErrNotReversible)
	}

	release, err := l.locks.Acquire(ctx, original.ProfileID)
	if err != nil {
		return nil, err
	}
	defer release()

	var reversal *Payment
	err = l.store.WithTx(ctx, func(tx Store) error {
		reversed, err := tx.HasReversal(ctx, id)
		if err != nil {
			return err
		}
		if reversed {
			return fmt.Errorf("payment %d: %w", id, ErrAlreadyReversed)
		}

		entry := Payment{
			ProfileID:  original.ProfileID,
			YearID:     original.YearID,
			Amount:     original.Amount.Neg(),
			Frequency:  original.Frequency,
			PaidAt:     l.now(),
			Remarks:    reason,
			Kind:       EntryReversal,
			ReversalOf: id,
			Verified:   true,
			RecordedBy: actor,
			CreatedAt:  l.now(),
		}
		newID, err := tx.AppendPayment(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = newID
		reversal = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("payment reversed",
		"payment_id", id,
		"reversal_id", reversal.ID,
		"amount", reversal.Amount.Rupees(),
		"actor", actor)
	return reversal, nil
}

// TotalPaid sums every entry for the profile, reversals included.
// Consistent with any concurrently committing Record: reads see committed
// rows only, never partial writes.
func (l *PaymentLedger) TotalPaid(ctx context.Context, profileID ProfileID) (money.Money, error) {
	profile, err := l.store.GetProfile(ctx, profileID)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}
	return l.store.TotalPaid(ctx, profileID)
}

// History returns the profile's entries in commit order (ascending
// sequence id), not paid_at order, so backdated entries cannot reshuffle
// the audit trail.
func (l *PaymentLedger) History(ctx context.Context, profileID ProfileID) ([]Payment, error) {
	profile, err := l.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}
	return l.store.LoadPayments(ctx, profileID)
}

// Verify toggles the informational verification flag. Totals are
// unaffected; remarks, when given, replace the entry's remarks.
func (l *PaymentLedger) Verify(ctx context.Context, id PaymentID, verified bool, remarks *string) (*Payment, error) {
	payment, err := l.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("payment %d: %w", id, ErrNotFound)
	}

	if err := l.store.SetPaymentVerified(ctx, id, verified, remarks); err != nil {
		return nil, err
	}
	payment.Verified = verified
	if remarks != nil {
		payment.Remarks = *remarks
	}
	return payment, nil
}
