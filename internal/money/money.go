// Package money implements the monetary arithmetic used on invoices.
//
// Prices are tax-inclusive: the gross amount already contains the tax, and
// the tax portion is backed out of it. This is not an additive VAT model.
package money

import "github.com/shopspring/decimal"

// Scale is the number of decimal places amounts are rounded to
// (currency minor units).
const Scale = 2

var one = decimal.NewFromInt(1)

// Round rounds an amount to currency minor-unit precision.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Scale)
}

// Tax returns the tax portion contained in a gross amount, rounded to two
// decimals: gross - gross/(1+rate).
func Tax(gross, rate decimal.Decimal) decimal.Decimal {
	return Round(gross.Sub(gross.Div(one.Add(rate))))
}

// ExclTax returns the tax-exclusive part of a gross amount. The identity
// Tax(g, r) + ExclTax(g, r) == g holds for any gross and rate.
func ExclTax(gross, rate decimal.Decimal) decimal.Decimal {
	return gross.Sub(Tax(gross, rate))
}

// Format renders an amount with two decimal places, e.g. "83.33".
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(Scale)
}
