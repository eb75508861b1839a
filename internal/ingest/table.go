package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

const utf8BOM = "\ufeff"

// table is a header-indexed view over a CSV document
type table struct {
	columns map[string]int
	rows    []row
}

// row is one data record with its 1-based line number in the source file
type row struct {
	line   int
	fields []string
}

// readTable parses a CSV document whose first record is the header.
// Column names compare case-insensitively; every name in required must be present.
func readTable(r io.Reader, required ...string) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", domain.ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: failed to read header: %v", domain.ErrMalformedInput, err)
	}

	t := &table{columns: make(map[string]int, len(header))}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		key := columnKey(name)
		if _, exists := t.columns[key]; !exists {
			t.columns[key] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := t.columns[columnKey(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns %q", domain.ErrMalformedInput, missing)
	}

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
		}
		if blank(fields) {
			continue
		}
		line, _ := reader.FieldPos(0)
		t.rows = append(t.rows, row{line: line, fields: fields})
	}

	return t, nil
}

// get returns the trimmed value of a column, or "" when the column or cell is absent
func (t *table) get(r row, column string) string {
	i, ok := t.columns[columnKey(column)]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func columnKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
