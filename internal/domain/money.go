package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxAmount caps every amount and balance the system accepts.
var MaxAmount = decimal.New(1, 12)

// Exponent bounds checked before any arithmetic, so oversized values are rejected without expanding them.
const (
	minExponent = -20
	maxExponent = 12
)

// CheckMoney rejects values above MaxAmount or with more than two decimal places. Sign is left to the caller.
func CheckMoney(d decimal.Decimal) error {
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	if !d.Equal(d.Truncate(2)) {
		return fmt.Errorf("%w: at most two decimal places", ErrInvalidAmount)
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: exceeds %s", ErrInvalidAmount, MaxAmount.String())
	}
	return nil
}
