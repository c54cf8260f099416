package pricing

import "math"

// Money represents a monetary amount in the shop currency.
// Amounts carry two decimal places at display boundaries and are compared
// through Epsilon so a ledger short by a rounding hair still settles.
type Money = float64

// Epsilon is the tolerance applied to every monetary comparison.
const Epsilon Money = 0.01

// Round normalizes an amount to two decimal places.
func Round(m Money) Money {
	return math.Round(m*100) / 100
}

// ApproxEqual reports whether two amounts are equal within Epsilon.
func ApproxEqual(a, b Money) bool {
	return math.Abs(a-b) <= Epsilon
}

// Covers reports whether paid reaches owed within Epsilon.
func Covers(paid, owed Money) bool {
	return paid >= owed-Epsilon
}
