// Package extractor turns files into indexable text. Extraction dispatches
// on file category: code files yield a metadata descriptor instead of
// source text, PDFs and CSVs get dedicated readers with hard caps, media
// and binaries yield nothing, and everything else is read as lossy UTF-8.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/filescope/filescope/pkg/types"
)

// ErrFileTooLarge is returned for plain text files over the size cap.
var ErrFileTooLarge = errors.New("file too large for processing")

// Config caps extraction work per file.
type Config struct {
	MaxTextBytes int64 // plain text read cap, default 10MB
	MaxPDFPages  int   // default 25
	MaxCSVRows   int   // default 1000
	MaxChars     int   // global content cap, 0 means unlimited
}

// Extractor reads file content according to category rules.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Extractor, filling zero config fields with defaults.
func New(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.MaxTextBytes == 0 {
		cfg.MaxTextBytes = 10 * 1024 * 1024
	}
	if cfg.MaxPDFPages == 0 {
		cfg.MaxPDFPages = 25
	}
	if cfg.MaxCSVRows == 0 {
		cfg.MaxCSVRows = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract returns the indexable content and category for a file. When
// processContent is false only the category is computed. The returned
// category is valid even when err is non-nil, so callers can persist
// metadata for files whose content failed to extract.
func (e *Extractor) Extract(ctx context.Context, path string, processContent bool) (string, types.FileCategory, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	category := types.CategoryForExtension(ext)

	if !processContent {
		return "", category, nil
	}

	content, err := e.extractByCategory(ctx, path, ext, category)
	if err != nil {
		return "", category, err
	}

	if e.cfg.MaxChars > 0 && len(content) > e.cfg.MaxChars {
		content = truncateOnRune(content, e.cfg.MaxChars)
	}
	return content, category, nil
}

func (e *Extractor) extractByCategory(ctx context.Context, path, ext string, category types.FileCategory) (string, error) {
	switch category {
	case types.CategoryCode:
		return codeMetadata(path, ext), nil
	case types.CategoryMedia, types.CategoryArchive, types.CategoryBinary:
		// Nothing worth indexing beyond the filesystem metadata
		return "", nil
	}

	switch strings.ToLower(ext) {
	case "pdf":
		return e.extractPDF(ctx, path)
	case "csv", "tsv":
		return e.extractCSV(path, ext)
	default:
		return e.extractText(path)
	}
}

// extractText reads a file as lossy UTF-8, rejecting files over the size cap.
func (e *Extractor) extractText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > e.cfg.MaxTextBytes {
		return "", fmt.Errorf("%s: %w", path, ErrFileTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
}

// codeMetadata builds the descriptor indexed in place of source text.
func codeMetadata(path, ext string) string {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return fmt.Sprintf("code_file: %s language: %s filename: %s stem: %s",
		name, types.LanguageForExtension(ext), name, stem)
}

// truncateOnRune cuts s to at most max bytes without splitting a rune.
func truncateOnRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
