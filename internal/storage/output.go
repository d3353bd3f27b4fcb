// Package storage manages the output directory tree for a generation run:
// scaffolding, asset copying and writing the resolved documents.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// htmlSubdir is where resolved documents land inside the output directory;
// the converter reads from it and writes PDFs/PNGs one level up.
const htmlSubdir = "html"

// Document is one resolved invoice ready to be written: a filename without
// extension and the full line sequence.
type Document struct {
	Filename string
	Lines    []string
}

// OutputManager prepares an output tree and writes documents into it
type OutputManager struct {
	outDir    string
	assetsDir string
	logger    *zap.Logger
}

// NewOutputManager creates a new OutputManager. assetsDir is the template
// directory whose style.css and img/ tree are copied next to the documents.
func NewOutputManager(outDir, assetsDir string, logger *zap.Logger) *OutputManager {
	return &OutputManager{
		outDir:    outDir,
		assetsDir: assetsDir,
		logger:    logger,
	}
}

// HTMLDir returns the directory resolved documents are written to.
func (m *OutputManager) HTMLDir() string {
	return filepath.Join(m.outDir, htmlSubdir)
}

// PrepareTree creates the output directory tree and copies the rendering
// assets (style.css, img/) from the assets directory. Missing assets are
// skipped: a template without a stylesheet is legal.
func (m *OutputManager) PrepareTree() error {
	htmlDir := m.HTMLDir()
	if err := os.MkdirAll(htmlDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	css := filepath.Join(m.assetsDir, "style.css")
	if _, err := os.Stat(css); err == nil {
		if err := copyFile(css, filepath.Join(htmlDir, "style.css")); err != nil {
			return fmt.Errorf("failed to copy stylesheet: %w", err)
		}
	}

	img := filepath.Join(m.assetsDir, "img")
	if info, err := os.Stat(img); err == nil && info.IsDir() {
		if err := copyDir(img, filepath.Join(htmlDir, "img")); err != nil {
			return fmt.Errorf("failed to copy image assets: %w", err)
		}
	}

	m.logger.Debug("Prepared output tree", zap.String("dir", m.outDir))
	return nil
}

// WriteDocuments writes each document as html/<filename>.html. Each file
// handle is scoped to a single write; nothing stays open across the loop.
func (m *OutputManager) WriteDocuments(docs []Document) error {
	htmlDir := m.HTMLDir()
	for _, doc := range docs {
		name := sanitizeFilename(doc.Filename)
		path := filepath.Join(htmlDir, name+".html")
		if err := m.validatePath(path); err != nil {
			return err
		}
		content := strings.Join(doc.Lines, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write document %s: %w", name, err)
		}
		m.logger.Debug("Wrote document",
			zap.String("path", path),
			zap.Int("lines", len(doc.Lines)))
	}

	m.logger.Info("Wrote documents",
		zap.String("dir", htmlDir),
		zap.Int("count", len(docs)))
	return nil
}

// sanitizeFilename strips path separators and parent references from a
// client-derived filename to prevent directory traversal.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return name
}

// validatePath checks that the path stays inside the output directory.
func (m *OutputManager) validatePath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(m.outDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes output directory: %s", path)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}
