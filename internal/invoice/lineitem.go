package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/tlefebvre/invoices/internal/money"
)

// LineItem represents one billable product on an invoice. The unit price is
// gross: it already contains the tax at TaxRate, and the tax portion is
// backed out of it (see the money package).
type LineItem struct {
	Identifier string
	UnitPrice  decimal.Decimal
	Quantity   int
	TaxRate    decimal.Decimal

	// Tax is the per-unit tax contained in UnitPrice, rounded to two
	// decimals. PriceExclTax is UnitPrice minus Tax.
	Tax          decimal.Decimal
	PriceExclTax decimal.Decimal
}

// NewLineItem creates a line item and computes its derived tax fields.
// Quantity values below 1 are coerced to 1.
func NewLineItem(identifier string, unitPrice decimal.Decimal, quantity int, taxRate decimal.Decimal) LineItem {
	if quantity < 1 {
		quantity = 1
	}
	tax := money.Tax(unitPrice, taxRate)
	return LineItem{
		Identifier:   identifier,
		UnitPrice:    unitPrice,
		Quantity:     quantity,
		TaxRate:      taxRate,
		Tax:          tax,
		PriceExclTax: unitPrice.Sub(tax),
	}
}

// Total returns the gross total: unit price times quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// TotalTax returns the tax contained in the gross total, rounded to two
// decimals.
func (li LineItem) TotalTax() decimal.Decimal {
	return money.Tax(li.Total(), li.TaxRate)
}

// TotalExclTax returns the gross total minus its tax.
func (li LineItem) TotalExclTax() decimal.Decimal {
	return li.Total().Sub(li.TotalTax())
}

// TaxRatePercent formats the tax rate as a whole percentage, e.g. "20%".
func (li LineItem) TaxRatePercent() string {
	return li.TaxRate.Mul(decimal.NewFromInt(100)).Round(0).String() + "%"
}
