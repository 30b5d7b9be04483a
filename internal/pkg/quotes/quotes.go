package quotes

import (
	"math/big"
)

// USDC is pegged 1:1 to USD with 6 decimals.
const usdcDecimals = 1_000_000

// UsdToUsdc converts a USD amount into USDC smallest units, rounded to
// the nearest unit. The arithmetic stays in big.Float so amounts beyond
// the int64 range cannot wrap.
func UsdToUsdc(amountUsd float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(amountUsd), big.NewFloat(usdcDecimals))
	f.Add(f, big.NewFloat(0.5))
	micro, _ := f.Int(nil)
	return micro
}
