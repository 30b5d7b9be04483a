package payout

import (
	"errors"
	"strings"
)

// ErrInvalidAmount rejects non-positive or malformed payout amounts. The
// guard runs before any record is created.
var ErrInvalidAmount = errors.New("payout amount must be a positive decimal")

// microDecimals is the smallest-unit precision (USDC, 6 decimals).
const microDecimals = 6

// ParseAmountMicro converts a decimal amount string into smallest-unit
// integer form. The integer is internal only and never returned to
// callers. More fractional digits than the token supports are rejected
// rather than rounded.
func ParseAmountMicro(amount string) (uint64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return 0, ErrInvalidAmount
	}

	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > microDecimals {
		return 0, ErrInvalidAmount
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return 0, ErrInvalidAmount
	}

	var micro uint64
	for _, c := range whole {
		d := uint64(c - '0')
		if micro > (1<<64-1-d)/10 {
			return 0, ErrInvalidAmount
		}
		micro = micro*10 + d
	}
	for i := 0; i < microDecimals; i++ {
		d := uint64(0)
		if i < len(frac) {
			d = uint64(frac[i] - '0')
		}
		if micro > (1<<64-1-d)/10 {
			return 0, ErrInvalidAmount
		}
		micro = micro*10 + d
	}

	if micro == 0 {
		return 0, ErrInvalidAmount
	}
	return micro, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
