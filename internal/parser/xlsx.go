package parser

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tlefebvre/invoices/internal/invoice"
)

// ParseXLSX reads the first sheet of a spreadsheet source table. The row
// contract is the same as for CSV: header row first, then one invoice per
// row in column order.
func (p *Parser) ParseXLSX(path string) ([]*invoice.Invoice, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source table: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("source table %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("source table %s has no header row", path)
	}

	invoices := make([]*invoice.Invoice, 0, len(rows)-1)
	for i, row := range rows[1:] {
		// excelize drops trailing empty cells, so pad short rows back
		// to the column contract before validating.
		for len(row) < columnCount {
			row = append(row, "")
		}
		inv, err := p.invoiceFromRow(row, i+1)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}

	p.logger.Info("Parsed source table",
		zap.String("path", path),
		zap.String("sheet", sheets[0]),
		zap.Int("invoices", len(invoices)))

	return invoices, nil
}
