package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is the tabular content shared by all exporters. Rows are keyed by
// header name; missing keys render as empty cells.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// utf8BOM lets spreadsheet tools detect the encoding of Vietnamese names.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter renders datasets as CSV tuned for spreadsheet import.
type CSVExporter struct {
	// WriteBOM prepends a UTF-8 byte order mark.
	WriteBOM bool
	// UseCRLF terminates records with \r\n instead of \n.
	UseCRLF bool
}

// NewCSVExporter returns an exporter with spreadsheet-friendly defaults.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{WriteBOM: true, UseCRLF: true}
}

// Render encodes the dataset, headers first.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}

	buf := &bytes.Buffer{}
	if e.WriteBOM {
		buf.Write(utf8BOM)
	}

	writer := csv.NewWriter(buf)
	writer.UseCRLF = e.UseCRLF

	record := make([]string, len(data.Headers))
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
