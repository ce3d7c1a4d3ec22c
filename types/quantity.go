package types

import "github.com/shopspring/decimal"

// AddQuantity returns a+b computed in decimal, so repeated additions and
// their reversals land exactly back on the starting value (0.1+0.2-0.2 == 0.1).
func AddQuantity(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}
