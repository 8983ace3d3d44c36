package searcher

import (
	"strings"
	"time"

	"github.com/filescope/filescope/pkg/types"
)

// dateLayouts accepted in from:/to: filters.
var dateLayouts = []string{"2006-01-02", "Jan 2, 2006", "Jan 2 2006"}

// extensionKeywords maps plain words users type to extension filters.
var extensionKeywords = map[string][]string{
	"pdf":          {"pdf"},
	"pdfs":         {"pdf"},
	"spreadsheet":  {"csv", "tsv", "xls", "xlsx", "ods"},
	"spreadsheets": {"csv", "tsv", "xls", "xlsx", "ods"},
	"image":        {"png", "jpg", "jpeg", "gif", "svg", "webp"},
	"images":       {"png", "jpg", "jpeg", "gif", "svg", "webp"},
	"photo":        {"png", "jpg", "jpeg"},
	"photos":       {"png", "jpg", "jpeg"},
	"video":        {"mp4", "avi", "mov", "mkv", "webm"},
	"videos":       {"mp4", "avi", "mov", "mkv", "webm"},
	"doc":          {"doc", "docx"},
	"docs":         {"doc", "docx", "md", "txt", "pdf"},
}

// ParsedQuery is a search query with structured filters pulled out of the
// raw text. Terms holds what remains after filter extraction.
type ParsedQuery struct {
	Raw        string
	Terms      string
	Extensions []string
	DateFrom   *time.Time
	DateTo     *time.Time
	Author     string
}

// HasFilters reports whether any structured filter was extracted.
func (p ParsedQuery) HasFilters() bool {
	return len(p.Extensions) > 0 || p.DateFrom != nil || p.DateTo != nil || p.Author != ""
}

// NameTerms returns the terms suitable for filename matching. Words like
// "photos" that only imply an extension filter would over-constrain a
// name LIKE clause, so they are dropped here but kept in Terms.
func (p ParsedQuery) NameTerms() string {
	var kept []string
	for _, token := range strings.Fields(p.Terms) {
		if _, ok := extensionKeywords[strings.ToLower(token)]; ok {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

// ParseQuery extracts structured filters from a raw query string.
// Recognized forms:
//
//	type:go ext:pdf      extension filters
//	.md                  bare extension token
//	from:2024-01-01      modified-after date
//	from Jan 2, 2024     bare "from"/"to" followed by a date
//	to:2024-06-30        modified-before date
//	by:alice author:bob  author filter
//
// Unrecognized tokens stay in Terms and drive text and vector search.
func ParseQuery(raw string) ParsedQuery {
	p := ParsedQuery{Raw: raw}
	var terms []string

	fields := strings.Fields(raw)
	for i := 0; i < len(fields); i++ {
		token := fields[i]
		lower := strings.ToLower(token)
		switch {
		case strings.HasPrefix(lower, "type:") || strings.HasPrefix(lower, "ext:"):
			_, value, _ := strings.Cut(lower, ":")
			if ext := normalizeExt(value); ext != "" {
				p.Extensions = append(p.Extensions, ext)
			}
		case strings.HasPrefix(lower, "from:") || strings.HasPrefix(lower, "after:"):
			_, value, _ := strings.Cut(token, ":")
			if ts := parseDate(value); ts != nil {
				p.DateFrom = ts
			} else {
				terms = append(terms, token)
			}
		case strings.HasPrefix(lower, "to:") || strings.HasPrefix(lower, "before:"):
			_, value, _ := strings.Cut(token, ":")
			if ts := parseDate(value); ts != nil {
				end := ts.Add(24*time.Hour - time.Nanosecond)
				p.DateTo = &end
			} else {
				terms = append(terms, token)
			}
		case strings.HasPrefix(lower, "by:") || strings.HasPrefix(lower, "author:"):
			_, value, _ := strings.Cut(token, ":")
			p.Author = value
		case lower == "from" || lower == "after" || lower == "since":
			if ts, consumed := parseDateAhead(fields[i+1:]); ts != nil {
				p.DateFrom = ts
				i += consumed
			} else {
				terms = append(terms, token)
			}
		case lower == "to" || lower == "before" || lower == "until":
			if ts, consumed := parseDateAhead(fields[i+1:]); ts != nil {
				end := ts.Add(24*time.Hour - time.Nanosecond)
				p.DateTo = &end
				i += consumed
			} else {
				terms = append(terms, token)
			}
		case isBareExtension(lower):
			p.Extensions = append(p.Extensions, normalizeExt(lower))
		default:
			// Plain words like "pdfs" or "photos" imply extension
			// filters but stay in the terms for text matching.
			if exts, ok := extensionKeywords[lower]; ok {
				p.Extensions = append(p.Extensions, exts...)
			}
			terms = append(terms, token)
		}
	}

	p.Terms = strings.Join(terms, " ")
	return p
}

// normalizeExt strips leading dots and lowercases.
func normalizeExt(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
}

// isBareExtension matches tokens like ".md" or ".xlsx" that name a known
// file category.
func isBareExtension(token string) bool {
	if !strings.HasPrefix(token, ".") || len(token) < 2 || len(token) > 8 {
		return false
	}
	ext := token[1:]
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return types.CategoryForExtension(ext) != types.CategoryUnknown
}

func parseDate(s string) *time.Time {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}

// parseDateAhead tries to read a date from the next few tokens, longest
// match first so "Jan 2, 2024" beats "Jan 2". Returns the parsed time and
// how many tokens it consumed.
func parseDateAhead(rest []string) (*time.Time, int) {
	max := 3
	if len(rest) < max {
		max = len(rest)
	}
	for n := max; n >= 1; n-- {
		if ts := parseDate(strings.Join(rest[:n], " ")); ts != nil {
			return ts, n
		}
	}
	return nil, 0
}
