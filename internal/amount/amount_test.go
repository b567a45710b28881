package amount

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     string
	}{
		{"whole SOL", "1", 9, "1000000000"},
		{"fractional USDC", "150.5", 6, "150500000"},
		{"floors extra precision", "0.1234567", 6, "123456"},
		{"never rounds up", "0.9999999", 6, "999999"},
		{"zero decimals", "42.9", 0, "42"},
		{"zero", "0", 9, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(decimal.RequireFromString(tt.amount), tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToBaseUnitsRejectsNegative(t *testing.T) {
	_, err := ToBaseUnits(decimal.NewFromInt(-1), 6)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name      string
		baseUnits string
		decimals  uint8
		want      string
	}{
		{"usdc quote", "150000000", 6, "150.0000"},
		{"sol truncates to four places", "1234567891", 9, "1.2345"},
		{"truncates instead of rounding", "999999", 6, "0.9999"},
		{"bonk five decimals", "12345678", 5, "123.4567"},
		{"two decimals keep two", "12345", 2, "123.45"},
		{"zero decimals", "42", 0, "42"},
		{"zero", "0", 9, "0.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDecimal(tt.baseUnits, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToDecimalInvalid(t *testing.T) {
	_, err := ToDecimal("12.5", 6)
	assert.ErrorIs(t, err, ErrInvalidBaseUnit)

	_, err = ToDecimal("abc", 6)
	assert.ErrorIs(t, err, ErrInvalidBaseUnit)

	_, err = ToDecimal("-5", 6)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestFromBaseUnitsIsExact(t *testing.T) {
	got, err := FromBaseUnits("1234567891", 9)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("1.234567891")))
}

func TestRoundTripWithinDisplayPrecision(t *testing.T) {
	inputs := []string{"0", "1", "0.5", "1.23456789", "150.000001", "98765.4321", "0.00009"}

	for d := uint8(0); d <= 9; d++ {
		tolerance := decimal.NewFromFloat(math.Pow10(-int(displayPlaces(d))))
		for _, in := range inputs {
			x := decimal.RequireFromString(in)

			base, err := ToBaseUnits(x, d)
			require.NoError(t, err)
			shown, err := ToDecimal(base, d)
			require.NoError(t, err)

			diff := x.Sub(decimal.RequireFromString(shown)).Abs()
			assert.True(t, diff.LessThan(tolerance) || diff.Equal(decimal.Zero),
				"x=%s d=%d shown=%s diff=%s", in, d, shown, diff)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"", "0", false},
		{".", "0", false},
		{"1.", "1", false},
		{".5", "0.5", false},
		{"123", "123", false},
		{"1.00", "1", false},
		{"-1", "", true},
		{"1e5", "", true},
		{"1.2.3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}
