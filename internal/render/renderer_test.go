package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tlefebvre/invoices/internal/config"
)

// fakeEngine writes a shell script that copies its input to its output,
// standing in for wkhtmltopdf.
func fakeEngine(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "engine")
	script := "#!/bin/sh\ncp \"$1\" \"$2\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func writeOutputTree(t *testing.T, names []string) string {
	t.Helper()
	outDir := t.TempDir()
	htmlDir := filepath.Join(outDir, "html")
	require.NoError(t, os.MkdirAll(htmlDir, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(htmlDir, name), []byte("<html></html>"), 0644))
	}
	return outDir
}

func TestConvertDir(t *testing.T) {
	logger := zap.NewNop()

	t.Run("converts every document with bounded workers", func(t *testing.T) {
		outDir := writeOutputTree(t, []string{
			"2024-03-01-001-acme.html",
			"2024-03-02-002-globex.html",
			"2024-03-03-003-initech.html",
			"style.css", // asset, not a document
		})
		c := NewConverter(config.RenderConfig{PDFBinary: fakeEngine(t), Workers: 2}, logger)

		require.NoError(t, c.ConvertDir(context.Background(), outDir, Options{}))

		assert.FileExists(t, filepath.Join(outDir, "2024-03-01-001-acme.pdf"))
		assert.FileExists(t, filepath.Join(outDir, "2024-03-02-002-globex.pdf"))
		assert.FileExists(t, filepath.Join(outDir, "2024-03-03-003-initech.pdf"))
		assert.NoFileExists(t, filepath.Join(outDir, "style.pdf"))
	})

	t.Run("png option switches binary and extension", func(t *testing.T) {
		outDir := writeOutputTree(t, []string{"2024-03-01-001-acme.html"})
		c := NewConverter(config.RenderConfig{ImageBinary: fakeEngine(t), Workers: 1}, logger)

		require.NoError(t, c.ConvertDir(context.Background(), outDir, Options{AsPNG: true}))
		assert.FileExists(t, filepath.Join(outDir, "2024-03-01-001-acme.png"))
	})

	t.Run("date range bounds the batch", func(t *testing.T) {
		outDir := writeOutputTree(t, []string{
			"2024-01-15-001-a.html",
			"2024-03-01-002-b.html",
			"2024-06-30-003-c.html",
		})
		c := NewConverter(config.RenderConfig{PDFBinary: fakeEngine(t), Workers: 1}, logger)

		opts := Options{
			From: mustDate("2024-02-01"),
			To:   mustDate("2024-03-31"),
		}
		require.NoError(t, c.ConvertDir(context.Background(), outDir, opts))

		assert.NoFileExists(t, filepath.Join(outDir, "2024-01-15-001-a.pdf"))
		assert.FileExists(t, filepath.Join(outDir, "2024-03-01-002-b.pdf"))
		assert.NoFileExists(t, filepath.Join(outDir, "2024-06-30-003-c.pdf"))
	})

	t.Run("collects failures without stopping siblings", func(t *testing.T) {
		outDir := writeOutputTree(t, []string{
			"2024-03-01-001-acme.html",
			"2024-03-02-002-globex.html",
		})
		c := NewConverter(config.RenderConfig{PDFBinary: "false", Workers: 2}, logger)

		err := c.ConvertDir(context.Background(), outDir, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 of 2 conversions failed")
	})

	t.Run("empty batch is not an error", func(t *testing.T) {
		outDir := writeOutputTree(t, nil)
		c := NewConverter(config.RenderConfig{PDFBinary: fakeEngine(t), Workers: 1}, logger)
		assert.NoError(t, c.ConvertDir(context.Background(), outDir, Options{}))
	})

	t.Run("missing html directory", func(t *testing.T) {
		c := NewConverter(config.RenderConfig{PDFBinary: fakeEngine(t), Workers: 1}, logger)
		assert.Error(t, c.ConvertDir(context.Background(), t.TempDir(), Options{}))
	})
}

func TestListDocuments(t *testing.T) {
	outDir := writeOutputTree(t, []string{
		"2024-03-01-001-acme.html",
		"2024-03-02-002-globex.html",
		"style.css",
		"no-date-prefix.html",
	})

	files, err := listDocuments(filepath.Join(outDir, "html"), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"2024-03-01-001-acme.html",
		"2024-03-02-002-globex.html",
	}, files)
}

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}
