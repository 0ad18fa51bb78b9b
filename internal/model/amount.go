package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ScaleAmount converts a raw integer amount into human-readable units using
// the token's decimal precision. Raw "1500000" with 6 decimals yields "1.5".
func ScaleAmount(raw string, decimals uint8) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse raw amount %q: %w", raw, err)
	}
	return value.Shift(-int32(decimals)), nil
}
