package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Dataset is a sheet of rows keyed by column header. Rosters are rendered from it and
// uploaded import files are parsed into it.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Lines holds the 1-based data row number of each entry in Rows when read from a file.
	Lines []int
}

// Line returns the source row number of Rows[i], falling back to its position.
func (d Dataset) Line(i int) int {
	if i < len(d.Lines) {
		return d.Lines[i]
	}
	return i + 1
}

var errNoColumns = errors.New("csv requires at least one header")

const utf8BOM = "\ufeff"

// CSVOption customises a CSVExporter.
type CSVOption func(*CSVExporter)

// WithBOM prefixes output with a UTF-8 byte order mark; Excel needs it to read non-ASCII names.
func WithBOM() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// WithComma sets the field delimiter, e.g. ';' for locales where Excel expects it.
func WithComma(r rune) CSVOption {
	return func(e *CSVExporter) {
		if r != 0 {
			e.comma = r
		}
	}
}

// CSVExporter writes a Dataset as CSV with the header row first. Missing cells are left empty.
type CSVExporter struct {
	comma rune
	bom   bool
}

// NewCSVExporter builds a comma-delimited exporter.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{comma: ','}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render returns the CSV encoding of data.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams data to w.
func (e *CSVExporter) Write(w io.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return errNoColumns
	}
	if e.bom {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}
	out := csv.NewWriter(w)
	out.Comma = e.comma
	if err := out.Write(data.Headers); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, h := range data.Headers {
			record[i] = row[h]
		}
		if err := out.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", n+1, err)
		}
	}
	out.Flush()
	return out.Error()
}
