package extractor

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// extractCSV renders delimited files as "header: value | header: value"
// lines, one per record. Records whose width differs from the header fall
// back to positional "colN: value" labels. Reading stops at MaxCSVRows and
// a truncation marker is appended.
func (e *Extractor) extractCSV(path, ext string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if strings.EqualFold(ext, "tsv") {
		r.Comma = '\t'
	}

	header, err := r.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read csv header %s: %w", path, err)
	}

	var lines []string
	truncated := false
	for {
		if len(lines) >= e.cfg.MaxCSVRows {
			truncated = true
			break
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			e.logger.Debug("skipping malformed csv record", "path", path, "error", err)
			continue
		}
		lines = append(lines, formatRecord(header, record))
	}

	if truncated {
		lines = append(lines, fmt.Sprintf("[truncated after %d rows]", e.cfg.MaxCSVRows))
	}
	return strings.Join(lines, "\n"), nil
}

func formatRecord(header, record []string) string {
	parts := make([]string, len(record))
	if len(record) == len(header) {
		for i, v := range record {
			parts[i] = header[i] + ": " + v
		}
	} else {
		for i, v := range record {
			parts[i] = fmt.Sprintf("col%d: %s", i+1, v)
		}
	}
	return strings.Join(parts, " | ")
}
