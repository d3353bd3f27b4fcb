// Package render converts written HTML documents to PDF or PNG by invoking
// an external engine (wkhtmltopdf/wkhtmltoimage) once per file. Conversions
// run concurrently, bounded by a worker pool, since each one shells out to a
// separate process.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tlefebvre/invoices/internal/config"
)

// datePrefixPattern matches the YYYY-MM-DD prefix every generated filename
// starts with (see invoice.Filename).
var datePrefixPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// Options controls one conversion batch.
type Options struct {
	// AsPNG selects image output instead of PDF.
	AsPNG bool
	// From and To bound the issue-date prefix of the files to convert.
	// Zero values leave the corresponding side unbounded.
	From time.Time
	To   time.Time
}

// Converter runs the external document engine over a directory of HTML files
type Converter struct {
	pdfBinary   string
	imageBinary string
	workers     int
	logger      *zap.Logger
}

// NewConverter creates a new converter
func NewConverter(cfg config.RenderConfig, logger *zap.Logger) *Converter {
	return &Converter{
		pdfBinary:   cfg.PDFBinary,
		imageBinary: cfg.ImageBinary,
		workers:     cfg.Workers,
		logger:      logger,
	}
}

// ConvertDir converts every matching HTML file under outDir/html, writing
// the results into outDir. A failed conversion does not stop the others;
// all failures are collected and returned together.
func (c *Converter) ConvertDir(ctx context.Context, outDir string, opts Options) error {
	htmlDir := filepath.Join(outDir, "html")
	files, err := listDocuments(htmlDir, opts.From, opts.To)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		c.logger.Info("No documents to convert", zap.String("dir", htmlDir))
		return nil
	}

	binary := c.pdfBinary
	extension := ".pdf"
	if opts.AsPNG {
		binary = c.imageBinary
		extension = ".png"
	}

	c.logger.Info("Converting documents",
		zap.Int("count", len(files)),
		zap.String("binary", binary),
		zap.Int("workers", c.workers))

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				src := filepath.Join(htmlDir, name)
				dst := filepath.Join(outDir, strings.TrimSuffix(name, ".html")+extension)
				if err := c.convert(ctx, binary, src, dst); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

	for _, name := range files {
		select {
		case jobs <- name:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d conversions failed: %w", len(errs), len(files), errors.Join(errs...))
	}

	c.logger.Info("Converted documents", zap.Int("count", len(files)))
	return nil
}

// convert runs the external engine for one file.
func (c *Converter) convert(ctx context.Context, binary, src, dst string) error {
	cmd := exec.CommandContext(ctx, binary, src, dst)
	if output, err := cmd.CombinedOutput(); err != nil {
		c.logger.Error("Conversion failed",
			zap.String("src", src),
			zap.ByteString("output", output),
			zap.Error(err))
		return fmt.Errorf("failed to convert %s: %w", filepath.Base(src), err)
	}
	c.logger.Debug("Converted document", zap.String("dst", dst))
	return nil
}

// listDocuments returns the HTML filenames under dir whose date prefix falls
// inside [from, to]. Files without a date prefix are skipped: they are
// assets, not documents.
func listDocuments(dir string, from, to time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".html") {
			continue
		}
		match := datePrefixPattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		date, err := time.Parse("2006-01-02", match[1])
		if err != nil {
			continue
		}
		if !from.IsZero() && date.Before(from) {
			continue
		}
		if !to.IsZero() && date.After(to) {
			continue
		}
		files = append(files, name)
	}
	return files, nil
}
