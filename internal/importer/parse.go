// Package importer loads catalog rows from CSV or JSON files and upserts
// them by external id or slug.
package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format is the file encoding of an import
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// MaxRows bounds a single import
const MaxRows = 10000

var ErrTooManyRows = fmt.Errorf("import is limited to %d rows", MaxRows)

// Row is one input record. Number is 1-based over data rows, not counting
// the CSV header.
type Row struct {
	Number int
	Values map[string]interface{}
}

// DetectFormat picks the format from an explicit value or the file extension
func DetectFormat(explicit, filename string) (Format, error) {
	f := strings.ToLower(strings.TrimSpace(explicit))
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	}
	switch Format(f) {
	case FormatCSV, FormatJSON:
		return Format(f), nil
	case "":
		return "", errors.New("cannot detect file format, pass csv or json")
	}
	return "", fmt.Errorf("unsupported format %q", f)
}

// ParseRows reads every row of r
func ParseRows(r io.Reader, format Format) ([]Row, error) {
	switch format {
	case FormatCSV:
		return parseCSV(r)
	case FormatJSON:
		return parseJSON(r)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func parseCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rows := []Row{}
	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		if blank(record) {
			continue
		}
		if len(rows) >= MaxRows {
			return nil, ErrTooManyRows
		}

		values := make(map[string]interface{}, len(header))
		for i, h := range header {
			if i < len(record) && strings.TrimSpace(h) != "" {
				values[h] = record[i]
			}
		}
		rows = append(rows, Row{Number: n, Values: values})
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseJSON accepts an array of objects, or an object wrapping one under
// "items", "data" or "rows"
func parseJSON(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	var items []map[string]interface{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		found := false
		for _, key := range []string{"items", "data", "rows"} {
			if inner, ok := wrapper[key]; ok {
				raw, found = inner, true
				break
			}
		}
		if !found {
			return nil, errors.New("json object must wrap rows in items, data or rows")
		}
	}

	inner := json.NewDecoder(bytes.NewReader(raw))
	inner.UseNumber()
	if err := inner.Decode(&items); err != nil {
		return nil, fmt.Errorf("json must be an array of objects: %w", err)
	}
	if len(items) > MaxRows {
		return nil, ErrTooManyRows
	}

	rows := make([]Row, 0, len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		rows = append(rows, Row{Number: i + 1, Values: item})
	}
	return rows, nil
}
