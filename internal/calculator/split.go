package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MaxCents bounds a single amount so that sums over a user's expenses
// stay far away from int64 overflow.
const MaxCents int64 = 10_000_000_000_000

var (
	ErrNotANumber        = errors.New("amount must be a number")
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrTooPrecise        = errors.New("amount must have at most 2 decimal places")
	ErrAmountTooLarge    = errors.New("amount is too large")
	ErrNoOthers          = errors.New("must split with at least one other participant")
)

// Split represents the calculated shares of one expense.
type Split struct {
	// ShareCents is what each non-paying participant owes.
	ShareCents int64
	// PayerShareCents is the payer's own share, including the remainder.
	PayerShareCents int64
	// Participants is the number of people sharing, payer included.
	Participants int
}

// Total reconstructs the amount the split was computed from.
func (s Split) Total() int64 {
	return s.ShareCents*int64(s.Participants-1) + s.PayerShareCents
}

// EqualSplit divides totalCents evenly between the payer and others people.
// Shares are rounded down to the cent; the remainder is attributed to the payer.
func EqualSplit(totalCents int64, others int) (Split, error) {
	if totalCents <= 0 {
		return Split{}, ErrNonPositiveAmount
	}
	if totalCents > MaxCents {
		return Split{}, ErrAmountTooLarge
	}
	if others < 1 {
		return Split{}, ErrNoOthers
	}

	n := int64(others + 1)
	share := totalCents / n
	remainder := totalCents - share*n

	return Split{
		ShareCents:      share,
		PayerShareCents: share + remainder,
		Participants:    others + 1,
	}, nil
}

// ToCents converts a decimal amount to integer cents.
// Amounts with sub-cent precision are rejected rather than rounded.
func ToCents(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrNonPositiveAmount
	}
	shifted := amount.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	if shifted.GreaterThan(decimal.NewFromInt(MaxCents)) {
		return 0, ErrAmountTooLarge
	}
	return shifted.IntPart(), nil
}

// FromCents converts integer cents to a decimal with two fractional digits.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ParseAmount parses a user-entered amount string into cents.
func ParseAmount(s string) (int64, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrNotANumber
	}
	return ToCents(amount)
}
