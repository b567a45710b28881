// internal/amount/amount.go
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"github.com/shopspring/decimal"
)

// DisplayPrecision caps the fractional digits shown for any token.
const DisplayPrecision = 4

var (
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrInvalidBaseUnit = errors.New("invalid base-unit amount")
	ErrInvalidInput    = errors.New("invalid decimal input")
)

var inputPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// ToBaseUnits converts a human amount into an integer base-unit string.
// The result is floored so the request never exceeds what the user typed.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (string, error) {
	if amount.IsNegative() {
		return "", fmt.Errorf("%w: %s", ErrNegativeAmount, amount.String())
	}
	return amount.Shift(int32(decimals)).Floor().String(), nil
}

// FromBaseUnits returns the exact decimal value of a base-unit amount.
func FromBaseUnits(baseUnits string, decimals uint8) (decimal.Decimal, error) {
	raw, ok := new(big.Int).SetString(baseUnits, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidBaseUnit, baseUnits)
	}
	if raw.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNegativeAmount, baseUnits)
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)), nil
}

// ToDecimal renders a base-unit amount for display. The value is truncated
// (not rounded) to min(decimals, 4) fractional digits and always printed
// with exactly that many digits.
func ToDecimal(baseUnits string, decimals uint8) (string, error) {
	value, err := FromBaseUnits(baseUnits, decimals)
	if err != nil {
		return "", err
	}
	places := displayPlaces(decimals)
	return value.Truncate(places).StringFixed(places), nil
}

// Parse reads a form field. Partial inputs such as "", "." and "1." are
// accepted; the first two read as zero.
func Parse(input string) (decimal.Decimal, error) {
	if !inputPattern.MatchString(input) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidInput, input)
	}
	switch input {
	case "", ".":
		return decimal.Zero, nil
	}
	if input[len(input)-1] == '.' {
		input = input[:len(input)-1]
	}
	if input[0] == '.' {
		input = "0" + input
	}
	value, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidInput, input)
	}
	return value, nil
}

func displayPlaces(decimals uint8) int32 {
	if decimals > DisplayPrecision {
		return DisplayPrecision
	}
	return int32(decimals)
}
