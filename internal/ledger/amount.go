// Package ledger holds the register arithmetic: cart totals, wallet
// attribution, change and settlement. Everything here is pure; callers
// persist the results.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// ParseAmount reads an operator-entered amount. Everything except digits,
// '.' and '-' is dropped first, so "¥1,200" reads as 1200. Text that still
// does not parse reads as zero.
func ParseAmount(text string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, text)
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Round rounds to the nearest yen, halves toward positive infinity.
func Round(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

// RoundFloat is Round for values that arrive as float64.
func RoundFloat(f float64) int64 {
	return Round(decimal.NewFromFloat(f))
}
