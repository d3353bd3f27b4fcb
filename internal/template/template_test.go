package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tlefebvre/invoices/internal/config"
	"github.com/tlefebvre/invoices/internal/invoice"
)

var testCompany = map[string]string{
	"name":    "Example Studio",
	"address": "12 Rue des Lilas",
	"vat":     "FR00123456789",
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultCurrency:  "EUR",
		PaymentDelayDays: 7,
		Tax: config.TaxConfig{
			ServiceRate:     0.20,
			Jurisdictions:   []string{"FR"},
			ExemptionNotice: "VAT not applicable, reverse charge.",
		},
	}
}

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testInvoice(index int, rate string) *invoice.Invoice {
	client := invoice.NewClient("Acme", "1 Rue X\n75000 Paris", "FR", "FR123")
	item := invoice.NewLineItem("SVC-1", decimal.RequireFromString("100.00"), 1, decimal.RequireFromString(rate))
	issue, _ := time.Parse("2006-01-02", "2024-03-01")
	return invoice.New(index, client, []invoice.LineItem{item}, issue, 7, "EUR", "wire details")
}

func TestLoad(t *testing.T) {
	logger := zap.NewNop()

	t.Run("bakes company placeholders permanently", func(t *testing.T) {
		path := writeTemplate(t, "<h1>{{ company_name }}</h1>\n<p>{{ client_name }}</p>\n")

		tmpl, err := Load(path, testCompany, logger)
		require.NoError(t, err)

		assert.Equal(t, "<h1>Example Studio</h1>", tmpl.lines[0])
		// client placeholder stays intact until render
		assert.Equal(t, "<p>{{ client_name }}</p>", tmpl.lines[1])
		require.Len(t, tmpl.placeholders, 1)
		assert.Equal(t, "client_name", tmpl.placeholders[0].identifier)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.html"), testCompany, logger)
		assert.Error(t, err)
	})

	t.Run("empty template", func(t *testing.T) {
		path := writeTemplate(t, "")
		_, err := Load(path, testCompany, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("empty company details", func(t *testing.T) {
		path := writeTemplate(t, "<p>hello</p>\n")
		_, err := Load(path, map[string]string{}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "company details")
	})

	t.Run("company placeholder without matching detail", func(t *testing.T) {
		path := writeTemplate(t, "<p>{{ company_phone }}</p>\n")
		_, err := Load(path, testCompany, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "phone")
	})

	t.Run("only the first placeholder per line is recognized", func(t *testing.T) {
		path := writeTemplate(t, "<p>{{ client_name }} and {{ client_VAT_number }}</p>\n")

		tmpl, err := Load(path, testCompany, logger)
		require.NoError(t, err)
		require.Len(t, tmpl.placeholders, 1)
		assert.Equal(t, "client_name", tmpl.placeholders[0].identifier)
	})

	t.Run("is idempotent", func(t *testing.T) {
		path := writeTemplate(t, "<h1>{{ company_name }}</h1>\n<p>{{ total_incl_tax }}</p>\n")

		first, err := Load(path, testCompany, logger)
		require.NoError(t, err)
		second, err := Load(path, testCompany, logger)
		require.NoError(t, err)

		inv := testInvoice(1, "0.20")
		cfg := testConfig()
		a, err := first.Render(inv, cfg)
		require.NoError(t, err)
		b, err := second.Render(inv, cfg)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestRender(t *testing.T) {
	logger := zap.NewNop()
	cfg := testConfig()

	t.Run("resolves every documented identifier", func(t *testing.T) {
		identifiers := []string{
			"client_name", "client_address", "client_VAT_number",
			"invoice_index", "invoice_date", "product_name",
			"product_quantity", "product_unit_price", "product_VAT_rate",
			"product_total_tax_excl", "total_discount", "total_excl_tax",
			"total_tax", "total_incl_tax", "mentions_vat",
			"payment_date", "payment_details",
		}
		var sb strings.Builder
		for _, id := range identifiers {
			sb.WriteString("{{ " + id + " }}\n")
		}
		path := writeTemplate(t, sb.String())

		tmpl, err := Load(path, testCompany, logger)
		require.NoError(t, err)

		lines, err := tmpl.Render(testInvoice(1, "0.20"), cfg)
		require.NoError(t, err)
		require.Len(t, lines, len(identifiers))

		assert.Equal(t, "Acme", lines[0])
		assert.Equal(t, "1 Rue X</br>75000 Paris", lines[1])
		assert.Equal(t, "FR123", lines[2])
		assert.Equal(t, "001", lines[3])
		assert.Equal(t, "2024-03-01", lines[4])
		assert.Equal(t, "SVC-1", lines[5])
		assert.Equal(t, "1", lines[6])
		assert.Equal(t, "83.33&euro;", lines[7])
		assert.Equal(t, "20%", lines[8])
		assert.Equal(t, "83.33&euro;", lines[9])
		assert.Equal(t, "0", lines[10])
		assert.Equal(t, "83.33&euro;", lines[11])
		assert.Equal(t, "16.67&euro;", lines[12])
		assert.Equal(t, "100.00&euro;", lines[13])
		assert.Equal(t, "", lines[14]) // taxed invoice carries no exemption notice
		assert.Equal(t, "2024-03-08", lines[15])
		assert.Equal(t, "wire details", lines[16])
	})

	t.Run("zero tax rate populates the exemption notice", func(t *testing.T) {
		path := writeTemplate(t, "{{ mentions_vat }}\n")
		tmpl, err := Load(path, testCompany, logger)
		require.NoError(t, err)

		lines, err := tmpl.Render(testInvoice(1, "0"), cfg)
		require.NoError(t, err)
		assert.Equal(t, "VAT not applicable, reverse charge.", lines[0])
	})

	t.Run("replaces only the first occurrence on the line", func(t *testing.T) {
		path := writeTemplate(t, "{{ client_name }} {{ client_name }}\n")
		tmpl, err := Load(path, testCompany, logger)
		require.NoError(t, err)

		lines, err := tmpl.Render(testInvoice(1, "0.20"), cfg)
		require.NoError(t, err)
		assert.Equal(t, "Acme {{ client_name }}", lines[0])
	})

	t.Run("unknown identifier is a fatal mismatch", func(t *testing.T) {
		path := writeTemplate(t, "{{ grand_total }}\n")
		tmpl, err := Load(path, testCompany, logger)
		require.NoError(t, err)

		_, err = tmpl.Render(testInvoice(1, "0.20"), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "grand_total")
	})

	t.Run("does not mutate the loaded template across invoices", func(t *testing.T) {
		path := writeTemplate(t, "<h1>{{ company_name }}</h1>\n<p>{{ client_name }}</p>\n")
		tmpl, err := Load(path, testCompany, logger)
		require.NoError(t, err)

		first, err := tmpl.Render(testInvoice(1, "0.20"), cfg)
		require.NoError(t, err)
		assert.Equal(t, "<p>Acme</p>", first[1])

		second := testInvoice(2, "0.20")
		second.Client.Name = "Globex"
		got, err := tmpl.Render(second, cfg)
		require.NoError(t, err)

		assert.Equal(t, "<h1>Example Studio</h1>", got[0]) // baked line unchanged
		assert.Equal(t, "<p>Globex</p>", got[1])           // no leak from the first render
		assert.Equal(t, "<p>Acme</p>", first[1])           // earlier copy untouched
	})
}
