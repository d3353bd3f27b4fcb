package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/tlefebvre/invoices/internal/config"
	"github.com/tlefebvre/invoices/internal/history"
	"github.com/tlefebvre/invoices/internal/parser"
	"github.com/tlefebvre/invoices/internal/render"
	"github.com/tlefebvre/invoices/internal/storage"
	"github.com/tlefebvre/invoices/internal/template"
	"github.com/tlefebvre/invoices/pkg/database"
	"github.com/tlefebvre/invoices/pkg/logging"
)

const usage = `Usage: invoices [-config path] <command>

Commands:
  generate -path <table>                      parse the source table and write html documents
  render   -path <table> [-png] [-from DATE] [-to DATE]
                                              convert written documents to pdf or png
  history  [-limit N]                         list recent generation runs
`

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Environment overrides may live in a .env next to the binary; a
	// missing file is fine.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "generate":
		err = runGenerate(cfg, logger, args)
	case "render":
		err = runRender(cfg, logger, args)
	case "history":
		err = runHistory(cfg, logger, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("Command failed", zap.String("command", command), zap.Error(err))
	}
}

// runGenerate parses the source table, renders every invoice through the
// template and writes the documents, recording the batch in the run ledger.
func runGenerate(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	sourcePath := fs.String("path", "", "path to the source table (.csv or .xlsx)")
	fs.Parse(args)
	if *sourcePath == "" {
		return fmt.Errorf("generate: -path is required")
	}

	// Template errors are fatal before any parsing begins.
	tmpl, err := template.Load(cfg.Output.TemplatePath, cfg.Company, logger)
	if err != nil {
		return err
	}

	invoices, err := parser.New(cfg, logger).Parse(*sourcePath)
	if err != nil {
		return err
	}

	docs := make([]storage.Document, 0, len(invoices))
	for _, inv := range invoices {
		lines, err := tmpl.Render(inv, cfg)
		if err != nil {
			return fmt.Errorf("%s: %w", inv, err)
		}
		docs = append(docs, storage.Document{Filename: inv.Filename(), Lines: lines})
	}

	out := storage.NewOutputManager(outputDir(cfg, *sourcePath), cfg.Output.AssetsDir, logger)
	if err := out.PrepareTree(); err != nil {
		return err
	}
	if err := out.WriteDocuments(docs); err != nil {
		return err
	}

	db, ledger, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := ledger.RecordRun(*sourcePath, invoices); err != nil {
		return err
	}

	logger.Info("Generated invoices",
		zap.Int("count", len(invoices)),
		zap.String("dir", out.HTMLDir()))
	return nil
}

// runRender converts previously written documents to PDF or PNG.
func runRender(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	sourcePath := fs.String("path", "", "path to the source table the documents were generated from")
	asPNG := fs.Bool("png", false, "render PNG images instead of PDF")
	from := fs.String("from", "", "only render documents issued on or after this date (YYYY-MM-DD)")
	to := fs.String("to", "", "only render documents issued on or before this date (YYYY-MM-DD)")
	fs.Parse(args)
	if *sourcePath == "" {
		return fmt.Errorf("render: -path is required")
	}

	opts := render.Options{AsPNG: *asPNG}
	var err error
	if opts.From, err = parseDateFlag(*from); err != nil {
		return fmt.Errorf("render: invalid -from: %w", err)
	}
	if opts.To, err = parseDateFlag(*to); err != nil {
		return fmt.Errorf("render: invalid -to: %w", err)
	}

	converter := render.NewConverter(cfg.Render, logger)
	return converter.ConvertDir(context.Background(), outputDir(cfg, *sourcePath), opts)
}

// runHistory lists recent generation runs from the ledger.
func runHistory(cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of runs to list")
	fs.Parse(args)

	db, ledger, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := ledger.Runs(*limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%4d  %s  %3d invoices  %s\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Invoices, run.SourcePath)
	}
	return nil
}

func openLedger(cfg *config.Config, logger *zap.Logger) (*database.DB, *history.Ledger, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := database.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := history.NewLedger(db, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, ledger, nil
}

// outputDir derives the per-table output directory from the source filename,
// so each table renders into its own tree.
func outputDir(cfg *config.Config, sourcePath string) string {
	base := filepath.Base(sourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(cfg.Output.Dir, name)
}

func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
