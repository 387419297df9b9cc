package core

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a signed monetary value in source currency units
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal value
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// AmountFromScaled builds unscaled / 10^scale without floating point
func AmountFromScaled(unscaled string, scale int32) (Amount, error) {
	d, err := decimal.NewFromString(unscaled)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid unscaled value %q: %w", unscaled, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return Amount{}, fmt.Errorf("unscaled value %q is not an integer", unscaled)
	}
	return Amount{Decimal: d.Shift(-scale)}, nil
}

// ParseAmount parses a decimal literal such as "-130.5"
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{Decimal: d}, nil
}

// MarshalJSON writes the amount as a bare JSON number
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON only accepts JSON numbers; quoted amounts are mistyped
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || bytes.Equal(data, []byte("null")) {
		return errors.New("amount must be a JSON number")
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("amount must be a JSON number: %w", err)
	}
	a.Decimal = d
	return nil
}
