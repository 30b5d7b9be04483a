package quotes

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsdToUsdc(t *testing.T) {
	cases := []struct {
		usd  float64
		want int64
	}{
		{5.00, 5_000_000},
		{0.01, 10_000},
		{0.000001, 1},
		{19.99, 19_990_000},
		{0, 0},
		// Float noise rounds to the nearest smallest unit.
		{0.1 + 0.2, 300_000},
	}
	for _, tc := range cases {
		got := UsdToUsdc(tc.usd)
		assert.Equal(t, tc.want, got.Int64(), "amount %v", tc.usd)
	}
}

func TestUsdToUsdcLargeAmountsDoNotWrap(t *testing.T) {
	// Ten trillion dollars exceeds int64 micro-units; the conversion must
	// stay positive and exact instead of wrapping negative.
	got := UsdToUsdc(1e13)
	want, ok := new(big.Int).SetString("10000000000000000000", 10)
	require.True(t, ok)
	assert.Zero(t, got.Cmp(want))
	assert.Equal(t, 1, got.Sign())

	// Even absurd inputs stay non-negative.
	assert.GreaterOrEqual(t, UsdToUsdc(1e30).Sign(), 0)
}
