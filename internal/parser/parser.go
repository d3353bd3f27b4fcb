// Package parser reads tabular invoice sources and produces strongly-typed
// invoice entities, one per data row, indexed in file order.
package parser

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tlefebvre/invoices/internal/config"
	"github.com/tlefebvre/invoices/internal/invoice"
)

// dateLayout is the strict source date format, DD/MM/YYYY.
const dateLayout = "02/01/2006"

// Source table column contract, v1. The header row is present and skipped;
// data rows must carry exactly these columns in this order.
const (
	colDate = iota
	colCurrency
	colProductID
	colPrice
	colClientName
	colClientCountryCode
	colClientVATNumber
	colClientAddress
	colPaymentMethod

	columnCount
)

// Parser turns delimited source tables into ordered invoice sequences.
// Parsing is fail-fast: any malformed row aborts the whole batch, because
// invoice numbering depends on contiguous row order and skipping a row would
// misnumber every invoice after it.
type Parser struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New creates a new parser
func New(cfg *config.Config, logger *zap.Logger) *Parser {
	return &Parser{
		cfg:    cfg,
		logger: logger,
	}
}

// Parse reads the source at path, dispatching on the file extension:
// .xlsx sources go through the spreadsheet reader, everything else is
// treated as UTF-8 comma-separated text.
func (p *Parser) Parse(path string) ([]*invoice.Invoice, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return p.ParseXLSX(path)
	}
	return p.ParseCSV(path)
}

// ParseCSV reads a comma-separated source table and returns its invoices in
// file order, indexed 1..N.
func (p *Parser) ParseCSV(path string) ([]*invoice.Invoice, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = columnCount

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read source table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("source table %s has no header row", path)
	}

	invoices := make([]*invoice.Invoice, 0, len(records)-1)
	for i, row := range records[1:] {
		inv, err := p.invoiceFromRow(row, i+1)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}

	p.logger.Info("Parsed source table",
		zap.String("path", path),
		zap.Int("invoices", len(invoices)))

	return invoices, nil
}

// invoiceFromRow derives one invoice from a source row. index is the 1-based
// data-row number, which doubles as the invoice index.
func (p *Parser) invoiceFromRow(row []string, index int) (*invoice.Invoice, error) {
	if len(row) != columnCount {
		return nil, fmt.Errorf("row %d: expected %d columns, got %d", index, columnCount, len(row))
	}

	issueDate, err := time.Parse(dateLayout, row[colDate])
	if err != nil {
		return nil, fmt.Errorf("row %d: invalid date %q (want DD/MM/YYYY): %w", index, row[colDate], err)
	}

	price, err := parsePrice(row[colPrice])
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", index, err)
	}

	currency := row[colCurrency]
	if currency == "" {
		currency = p.cfg.DefaultCurrency
	}

	client := invoice.NewClient(
		row[colClientName],
		row[colClientAddress],
		row[colClientCountryCode],
		row[colClientVATNumber],
	)

	// One line item per invoice; multi-product rows are unsupported.
	item := invoice.NewLineItem(
		row[colProductID],
		price,
		1,
		p.cfg.TaxRateFor(client.CountryCode),
	)

	return invoice.New(
		index,
		client,
		[]invoice.LineItem{item},
		issueDate,
		p.cfg.PaymentDelayDays,
		currency,
		p.cfg.PaymentDetails(row[colPaymentMethod]),
	), nil
}

// parsePrice parses a unit price, tolerating a comma as the decimal
// separator by normalizing it to a period first.
func parsePrice(s string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	price, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid price %q: must not be negative", s)
	}
	return price, nil
}
