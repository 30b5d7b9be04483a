package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmountMicro(t *testing.T) {
	valid := []struct {
		in   string
		want uint64
	}{
		{"5.00", 5_000_000},
		{"5", 5_000_000},
		{"0.000001", 1},
		{"0.5", 500_000},
		{"12.345678", 12_345_678},
		{"  1.25  ", 1_250_000},
		{"18446744073709.551615", 1<<64 - 1},
	}
	for _, tc := range valid {
		got, err := ParseAmountMicro(tc.in)
		assert.NoError(t, err, "amount %q", tc.in)
		assert.Equal(t, tc.want, got, "amount %q", tc.in)
	}

	invalid := []string{
		"",
		"0",
		"0.000000",
		"-1",
		"+1",
		"-0.5",
		"1.2345678", // more fractional digits than the token supports
		"abc",
		"1.2.3",
		"1,50",
		"1e6",
		".",
		"18446744073709.551616", // one past uint64 max
		"99999999999999999999999999",
	}
	for _, in := range invalid {
		_, err := ParseAmountMicro(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", in)
	}
}
