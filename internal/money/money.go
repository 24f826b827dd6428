// Package money converts between the decimal-string amounts used on the API
// surface and the int64 minor units stored and computed on everywhere else.
// Binary floating point is never involved.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/parceldesk/backend/internal/domain"
)

// Parse converts a decimal string like "150.00" to minor units (15000).
// More than two fractional digits is rejected rather than rounded.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("money.Parse: %q: %w", s, domain.ErrInvalidAmount)
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("money.Parse: %q has sub-cent precision: %w", s, domain.ErrInvalidAmount)
	}
	return shifted.IntPart(), nil
}

// Format renders minor units as a two-decimal string: 15000 -> "150.00".
func Format(minor int64) string {
	return decimal.NewFromInt(minor).Shift(-2).StringFixed(2)
}
