package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// extractPDF pulls plain text from the first MaxPDFPages pages, extracting
// pages concurrently. Pages that fail individually are skipped; the whole
// document fails only when no page yields any text.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	if total == 0 {
		return "", fmt.Errorf("pdf appears to be empty: %s", path)
	}
	pages := total
	if pages > e.cfg.MaxPDFPages {
		pages = e.cfg.MaxPDFPages
	}

	texts := make([]string, pages)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < pages; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			page := reader.Page(i + 1)
			if page.V.IsNull() {
				return nil
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				e.logger.Debug("pdf page extraction failed",
					"path", path, "page", i+1, "error", err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, t := range texts {
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content found in pdf: %s", path)
	}
	return sb.String(), nil
}
