/*
Package money provides the integral fixed-point value type used for all
monetary amounts in the fee engine.

PURPOSE:
  Amounts are stored and computed as int64 counts of minor currency units
  (paise). Integer arithmetic cannot accumulate floating-point error and
  makes ledger sums exact folds.

DESIGN PRINCIPLES:
  1. Integer storage: Money is int64 paise, never a float, never a decimal
  2. Checked arithmetic: AddChecked/MulIntChecked detect int64 overflow at
     validation boundaries instead of wrapping silently
  3. Display is separate: Rupees() and Percent() use decimal.Decimal, and
     their results never feed back into stored amounts

USAGE:
  fee := money.FromRupees(500)           // ₹500 == 50000 paise
  total := charges.Add(fee.MulInt(12))
  fmt.Println(total.Rupees())            // "11000.00"

SEE ALSO:
  - fees/types.go: domain types built on Money
*/
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (paise).
type Money int64

var ErrOverflow = errors.New("money: arithmetic overflow")

// FromPaise constructs Money from a raw minor-unit count.
func FromPaise(v int64) Money { return Money(v) }

// FromRupees constructs Money from whole rupees.
func FromRupees(r int64) Money { return Money(r * 100) }

func (m Money) Paise() int64 { return int64(m) }

func (m Money) Add(b Money) Money    { return m + b }
func (m Money) Sub(b Money) Money    { return m - b }
func (m Money) MulInt(n int64) Money { return Money(int64(m) * n) }
func (m Money) Neg() Money           { return -m }

func (m Money) IsNegative() bool { return m < 0 }
func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsPositive() bool { return m > 0 }

func (m Money) GreaterThan(b Money) bool { return m > b }
func (m Money) LessThan(b Money) bool    { return m < b }

// Cmp returns -1, 0, or +1 comparing m against b.
func (m Money) Cmp(b Money) int {
	switch {
	case m < b:
		return -1
	case m > b:
		return 1
	default:
		return 0
	}
}

func (m Money) Min(b Money) Money {
	if m.LessThan(b) {
		return m
	}
	return b
}

func (m Money) Max(b Money) Money {
	if m.GreaterThan(b) {
		return m
	}
	return b
}

// AddChecked returns m+b or ErrOverflow if the sum does not fit in int64.
func (m Money) AddChecked(b Money) (Money, error) {
	sum := m + b
	if (b > 0 && sum < m) || (b < 0 && sum > m) {
		return 0, ErrOverflow
	}
	return sum, nil
}

// MulIntChecked returns m*n or ErrOverflow.
func (m Money) MulIntChecked(n int64) (Money, error) {
	if m == 0 || n == 0 {
		return 0, nil
	}
	prod := int64(m) * n
	if prod/n != int64(m) {
		return 0, ErrOverflow
	}
	return Money(prod), nil
}

// Rupees renders the amount as a rupee string with two fractional digits,
// e.g. 110050 paise -> "1100.50". Display only.
func (m Money) Rupees() string {
	return decimal.New(int64(m), -2).StringFixed(2)
}

func (m Money) String() string {
	return fmt.Sprintf("%dp", int64(m))
}

// Percent returns part/whole*100 rounded half-up to two places, as a float
// suitable for display. Returns 0 when whole is zero; never divides by zero.
// The result must never be fed back into monetary computation.
func Percent(part, whole Money) float64 {
	if whole == 0 {
		return 0
	}
	pct := decimal.New(int64(part), 0).
		Div(decimal.New(int64(whole), 0)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f, _ := pct.Float64()
	return f
}
