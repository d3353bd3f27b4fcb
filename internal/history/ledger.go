// Package history keeps a sqlite ledger of generation runs, so past batches
// can be audited without re-reading the source tables.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tlefebvre/invoices/internal/invoice"
	"github.com/tlefebvre/invoices/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source_path TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS run_invoices (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	filename    TEXT NOT NULL,
	client_name TEXT NOT NULL,
	total       TEXT NOT NULL,
	tax         TEXT NOT NULL,
	currency    TEXT NOT NULL,
	issue_date  DATE NOT NULL
);
`

// Run is one recorded generation batch
type Run struct {
	ID         int64
	SourcePath string
	CreatedAt  time.Time
	Invoices   int
}

// Ledger records and queries generation runs
type Ledger struct {
	db     *database.DB
	logger *zap.Logger
}

// NewLedger creates a ledger and ensures its schema exists.
func NewLedger(db *database.DB, logger *zap.Logger) (*Ledger, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &Ledger{db: db, logger: logger}, nil
}

// RecordRun inserts one run row plus one row per invoice, transactionally:
// a batch is recorded fully or not at all. Returns the run id.
func (l *Ledger) RecordRun(sourcePath string, invoices []*invoice.Invoice) (int64, error) {
	var runID int64
	err := l.db.WithTransaction(func(tx *sql.Tx) error {
		result, err := tx.Exec(`INSERT INTO runs (source_path) VALUES (?)`, sourcePath)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		runID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get run id: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO run_invoices (run_id, filename, client_name, total, tax, currency, issue_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, inv := range invoices {
			_, err := stmt.Exec(
				runID,
				inv.Filename(),
				inv.Client.Name,
				inv.Total.StringFixed(2),
				inv.Tax.StringFixed(2),
				inv.CurrencyCode,
				inv.IssueDate.Format("2006-01-02"),
			)
			if err != nil {
				return fmt.Errorf("failed to insert invoice %03d: %w", inv.Index, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.logger.Info("Recorded generation run",
		zap.Int64("run_id", runID),
		zap.String("source", sourcePath),
		zap.Int("invoices", len(invoices)))

	return runID, nil
}

// Runs returns the most recent runs, newest first.
func (l *Ledger) Runs(limit int) ([]Run, error) {
	rows, err := l.db.Query(`
		SELECT r.id, r.source_path, r.created_at, COUNT(i.id)
		FROM runs r
		LEFT JOIN run_invoices i ON i.run_id = r.id
		GROUP BY r.id
		ORDER BY r.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.SourcePath, &run.CreatedAt, &run.Invoices); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
