package ledger

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when user input does not parse as a positive number.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a ruble amount that keeps exact decimal precision and serializes as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a whole ruble value.
func NewAmount(v int64) Amount {
	return Amount{decimal.NewFromInt(v)}
}

// MarshalJSON writes the amount without quotes so documents stay numeric.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts numbers and quoted numbers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// Rubles rounds half away from zero to a whole ruble.
func (a Amount) Rubles() int64 {
	return a.Decimal.Round(0).IntPart()
}

// Format renders the amount without a trailing ".0" for whole values.
func (a Amount) Format() string {
	return a.Decimal.String()
}

// ParseAmount reads user-typed amounts such as "5 000₽", "12,5" or "1000 руб".
func ParseAmount(text string) (Amount, error) {
	cleaned := strings.NewReplacer(
		"₽", "",
		"руб.", "",
		"руб", "",
		"RUB", "",
		" ", "",
		" ", "",
		",", ".",
	).Replace(strings.TrimSpace(text))
	if cleaned == "" {
		return Amount{}, ErrInvalidAmount
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{value}, nil
}

// Payout is the worker's share of amount at rate percent, rounded half away from zero.
// 999 at 65% is 649 (649.35), 1000 at 80% is 800.
func Payout(amount Amount, rate int) int64 {
	return amount.Decimal.
		Mul(decimal.NewFromInt(int64(rate))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
