// Package template implements the invoice placeholder template: a text file
// with {{ identifier }} tokens. Company-scoped tokens are resolved once at
// load time; all other tokens are resolved per invoice at render time.
package template

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tlefebvre/invoices/internal/config"
	"github.com/tlefebvre/invoices/internal/invoice"
	"github.com/tlefebvre/invoices/internal/money"
)

// placeholderPattern matches one {{ identifier }} token. Only the first
// token on a line is recognized; lines with multiple tokens are a known
// limitation existing template files rely on.
var placeholderPattern = regexp.MustCompile(`\{\{ (.*?) \}\}`)

// companyPrefix marks identifiers resolved against the company details at
// load time instead of per invoice.
const companyPrefix = "company"

// placeholder records an unresolved token: which line it sits on and the
// identifier inside it.
type placeholder struct {
	line       int
	identifier string
}

// Template is a loaded invoice template. The stored lines have company
// tokens already baked in and are read-only after Load, so one Template is
// safe to reuse across the whole batch.
type Template struct {
	lines        []string
	placeholders []placeholder
	logger       *zap.Logger
}

// Load reads the template at path and bakes the company details into every
// company_ token. Remaining tokens are recorded for per-invoice resolution.
// Load fails if the file is missing, the template is empty, the company
// details are empty, or a company token has no matching detail.
func Load(path string, company map[string]string, logger *zap.Logger) (*Template, error) {
	if len(company) == 0 {
		return nil, fmt.Errorf("template %s: company details are empty", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer file.Close()

	t := &Template{logger: logger}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if match := placeholderPattern.FindStringSubmatch(line); match != nil {
			identifier := match[1]
			if strings.HasPrefix(identifier, companyPrefix) {
				// company_name -> name; a bare "company" keys
				// onto itself.
				key := identifier
				if _, rest, found := strings.Cut(identifier, "_"); found {
					key = rest
				}
				value, ok := company[key]
				if !ok {
					return nil, fmt.Errorf("template %s line %d: no company detail %q for {{ %s }}",
						path, len(t.lines)+1, key, identifier)
				}
				line = strings.Replace(line, match[0], value, 1)
			} else {
				t.placeholders = append(t.placeholders, placeholder{
					line:       len(t.lines),
					identifier: identifier,
				})
			}
		}
		t.lines = append(t.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	if len(t.lines) == 0 {
		return nil, fmt.Errorf("template %s is empty", path)
	}

	logger.Info("Loaded template",
		zap.String("path", path),
		zap.Int("lines", len(t.lines)),
		zap.Int("placeholders", len(t.placeholders)))

	return t, nil
}

// Render resolves the per-invoice placeholders and returns the full line
// sequence as a fresh copy. The loaded template is never mutated, so renders
// of different invoices cannot leak into each other. An identifier with no
// matching data key is an error: it means the template and the engine
// disagree on the key set.
func (t *Template) Render(inv *invoice.Invoice, cfg *config.Config) ([]string, error) {
	data := renderData(inv, cfg)

	lines := make([]string, len(t.lines))
	copy(lines, t.lines)

	for _, ph := range t.placeholders {
		value, ok := data[ph.identifier]
		if !ok {
			return nil, fmt.Errorf("template line %d: no data for identifier %q", ph.line+1, ph.identifier)
		}
		token := "{{ " + ph.identifier + " }}"
		lines[ph.line] = strings.Replace(lines[ph.line], token, value, 1)
	}

	return lines, nil
}

// renderData builds the per-invoice substitution mapping. The key set is
// fixed: templates may reference any subset of it, never anything outside it.
func renderData(inv *invoice.Invoice, cfg *config.Config) map[string]string {
	item := inv.Items[0]

	mentionsVAT := ""
	if item.TaxRate.IsZero() {
		mentionsVAT = cfg.Tax.ExemptionNotice
	}

	return map[string]string{
		"client_name":            inv.Client.Name,
		"client_address":         strings.ReplaceAll(inv.Client.Address, "\n", "</br>"),
		"client_VAT_number":      inv.Client.TaxNumber,
		"invoice_index":          inv.FormattedIndex(),
		"invoice_date":           inv.IssueDate.Format("2006-01-02"),
		"product_name":           item.Identifier,
		"product_quantity":       strconv.Itoa(item.Quantity),
		"product_unit_price":     money.Format(item.PriceExclTax) + inv.CurrencySymbol,
		"product_VAT_rate":       item.TaxRatePercent(),
		"product_total_tax_excl": money.Format(item.TotalExclTax()) + inv.CurrencySymbol,
		"total_discount":         "0",
		"total_excl_tax":         money.Format(inv.TotalExclTax) + inv.CurrencySymbol,
		"total_tax":              money.Format(inv.Tax) + inv.CurrencySymbol,
		"total_incl_tax":         money.Format(inv.Total) + inv.CurrencySymbol,
		"mentions_vat":           mentionsVAT,
		"payment_date":           inv.DueDate.Format("2006-01-02"),
		"payment_details":        inv.PaymentDetails,
	}
}
