package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	domain "github.com/bryanwahyu/docgate/internal/domain/ingest"
)

// Extractor parses delimited text and spreadsheets locally. It never makes
// a network call; anything it cannot decode surfaces as a parse error naming
// the offending file so sibling files in a batch can proceed.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

func (e *Extractor) Extract(name, contentType string, data []byte) (*domain.ExtractionResult, error) {
	ct := strings.ToLower(contentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case strings.Contains(ct, "spreadsheetml") || ct == "application/vnd.ms-excel" || ext == ".xlsx" || ext == ".xls":
		return e.extractXLSX(name, data)
	case ct == "text/csv" || ct == "application/csv" || ext == ".csv":
		return e.extractDelimited(name, data, ',')
	case ct == "text/tab-separated-values" || ext == ".tsv":
		return e.extractDelimited(name, data, '\t')
	default:
		return e.extractPlain(name, data)
	}
}

func (e *Extractor) extractPlain(name string, data []byte) (*domain.ExtractionResult, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s: not valid UTF-8 text", domain.ErrParse, name)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("%w: %s: file is empty", domain.ErrParse, name)
	}
	return &domain.ExtractionResult{
		FullText:   text,
		Provenance: domain.Provenance{Route: domain.RouteText},
	}, nil
}

func (e *Extractor) extractDelimited(name string, data []byte, comma rune) (*domain.ExtractionResult, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s: not valid UTF-8 text", domain.ErrParse, name)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: no rows", domain.ErrParse, name)
	}

	table := domain.Table{Headers: records[0]}
	if len(records) > 1 {
		table.Rows = records[1:]
	}

	var b strings.Builder
	for _, rec := range records {
		b.WriteString(strings.Join(rec, ", "))
		b.WriteString("\n")
	}

	return &domain.ExtractionResult{
		FullText:   strings.TrimSpace(b.String()),
		Tables:     []domain.Table{table},
		Provenance: domain.Provenance{Route: domain.RouteText},
	}, nil
}

// extractXLSX reconstructs one table per sheet, header row first, with no
// semantic summarization.
func (e *Extractor) extractXLSX(name string, data []byte) (*domain.ExtractionResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, name, err)
	}
	defer f.Close()

	var (
		tables []domain.Table
		b      strings.Builder
	)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: sheet %s: %v", domain.ErrParse, name, sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		table := domain.Table{Title: sheet, Headers: rows[0]}
		if len(rows) > 1 {
			table.Rows = rows[1:]
		}
		tables = append(tables, table)

		fmt.Fprintf(&b, "[%s]\n", sheet)
		for _, row := range rows {
			b.WriteString(strings.Join(row, ", "))
			b.WriteString("\n")
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: %s: workbook has no data", domain.ErrParse, name)
	}

	return &domain.ExtractionResult{
		FullText:   strings.TrimSpace(b.String()),
		Tables:     tables,
		Provenance: domain.Provenance{Route: domain.RouteText},
	}, nil
}
