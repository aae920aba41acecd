/*
lockstate.go - Mutation guard state machine

PURPOSE:
  One well-tested predicate for the profile lock state, instead of
  "payments exist" conditionals scattered through the services.

STATE MACHINE:
  Open            no payments, not locked      -> editable freely
  PartiallyLocked >=1 payment, not locked      -> edits allowed only while
                                                 payable stays >= paid
  Locked          explicit admin lock          -> no financial edits; only
                                                 an explicit, logged unlock
                                                 returns to PartiallyLocked

  Open -> PartiallyLocked happens implicitly on the first payment and is
  one-directional. Locked is only ever entered and left explicitly.
*/
package fees

type LockState string

const (
	LockOpen    LockState = "open"
	LockPartial LockState = "partially_locked"
	LockFull    LockState = "locked"
)

// LockStateOf derives the mutation-guard state for a profile.
// hasPayments is whether at least one ledger entry references the profile.
func LockStateOf(p StudentFeeProfile, hasPayments bool) LockState {
	if p.Locked {
		return LockFull
	}
	if hasPayments {
		return LockPartial
	}
	return LockOpen
}
