package utils

import (
	"github.com/shopspring/decimal"
)

// Stored money has cents; interest rates keep four decimal places.
const (
	MoneyScale int32 = 2
	RateScale  int32 = 4
)

var hundred = decimal.NewFromInt(100)

// CeilUnit rounds an amount up to the next whole currency unit.
// Generated amounts are never rounded down.
func CeilUnit(amount decimal.Decimal) decimal.Decimal {
	return amount.Ceil()
}

// RateFromPercent converts a percentage such as "5" into the fraction 0.05.
func RateFromPercent(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// FitsScale reports whether d has no significant digits past the given number of
// decimal places. Trailing zeros do not count: 1.500 fits scale 2.
func FitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}
