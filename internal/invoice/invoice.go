// Package invoice defines the invoice entities and their derived financial
// fields: totals, tax, due dates, currency symbols and output filenames.
package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tlefebvre/invoices/internal/money"
)

// currencySymbols maps ISO currency codes to their display symbols. Codes
// outside this table resolve to an empty symbol, never to an error.
var currencySymbols = map[string]string{
	"EUR": "&euro;",
	"USD": "$",
	"JPY": "JPY",
}

// CurrencySymbol returns the display symbol for an ISO currency code, or ""
// for an unknown code.
func CurrencySymbol(code string) string {
	return currencySymbols[code]
}

// Invoice composes a client and its line items with the dates, currency and
// payment terms of one billable transaction. Aggregates are computed at
// construction and the value is not mutated afterwards.
type Invoice struct {
	Index          int
	Client         Client
	Items          []LineItem
	IssueDate      time.Time
	DueDate        time.Time
	CurrencyCode   string
	CurrencySymbol string
	PaymentDetails string

	// Total is the gross sum over all items, Tax the tax it contains,
	// TotalExclTax the difference. Each is rounded to two decimals and
	// Total == TotalExclTax + Tax holds exactly.
	Total        decimal.Decimal
	Tax          decimal.Decimal
	TotalExclTax decimal.Decimal
}

// New creates an invoice and derives its aggregates. The index is the 1-based
// position of the row in the source table. The due date is the issue date
// plus the configured payment delay in days.
func New(index int, client Client, items []LineItem, issueDate time.Time, paymentDelayDays int, currencyCode, paymentDetails string) *Invoice {
	total := decimal.Zero
	tax := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total())
		tax = tax.Add(item.TotalTax())
	}
	total = money.Round(total)
	tax = money.Round(tax)

	return &Invoice{
		Index:          index,
		Client:         client,
		Items:          items,
		IssueDate:      issueDate,
		DueDate:        issueDate.AddDate(0, 0, paymentDelayDays),
		CurrencyCode:   currencyCode,
		CurrencySymbol: CurrencySymbol(currencyCode),
		PaymentDetails: paymentDetails,
		Total:          total,
		Tax:            tax,
		TotalExclTax:   total.Sub(tax),
	}
}

// FormattedIndex returns the invoice index zero-padded to three digits.
func (inv *Invoice) FormattedIndex() string {
	return fmt.Sprintf("%03d", inv.Index)
}

// Filename returns a filesystem-safe identifier without extension:
// {issue date YYYY-MM-DD}-{index %03d}-{client name, lowercased, spaces and
// slashes replaced with hyphens}. Filenames sort lexically by date then
// index, so directory listings come out in chronological order.
func (inv *Invoice) Filename() string {
	name := strings.ReplaceAll(inv.Client.Name, "/", "-")
	filename := fmt.Sprintf("%s-%03d-%s", inv.IssueDate.Format("2006-01-02"), inv.Index, name)
	return strings.ReplaceAll(strings.ToLower(filename), " ", "-")
}

func (inv *Invoice) String() string {
	return fmt.Sprintf("invoice %03d from %s", inv.Index, inv.IssueDate.Format("2006-01-02"))
}
