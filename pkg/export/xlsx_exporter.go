package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct {
	sheet string
}

// NewXLSXExporter builds an XLSX exporter writing to the named sheet.
func NewXLSXExporter(sheet string) *XLSXExporter {
	if sheet == "" {
		sheet = defaultSheet
	}
	return &XLSXExporter{sheet: sheet}
}

// Render produces workbook bytes with a header row followed by data rows.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close()

	if e.sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, e.sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	header := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(e.sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}

	for r, row := range data.Rows {
		record := make([]interface{}, len(data.Headers))
		for i, h := range data.Headers {
			record[i] = row[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(e.sheet, cell, &record); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", r+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
