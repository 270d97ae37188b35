package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Letterhead is printed at the top of a sheet.
type Letterhead struct {
	Name     string
	Subtitle string
	Address  string
	Contact  string
}

// Field is a label/value pair in a sheet's detail block.
type Field struct {
	Label string
	Value string
}

// Sheet is a printable record: letterhead, a detail block, a table and a closing line.
type Sheet struct {
	Letterhead Letterhead
	Title      string
	Fields     []Field
	Table      Dataset
	// Widths are relative column weights for Table; equal widths when empty.
	Widths []float64
	Footer string
}

// RenderSheet lays out a single-record sheet such as a student's course registration.
func (e *PDFExporter) RenderSheet(sheet Sheet) ([]byte, error) {
	if len(sheet.Table.Headers) == 0 {
		return nil, fmt.Errorf("pdf sheet requires at least one table header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	lh := sheet.Letterhead
	if lh.Name != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 8, tr(lh.Name), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{lh.Subtitle, lh.Address, lh.Contact} {
		if line != "" {
			pdf.CellFormat(0, 5, tr(line), "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(2)
	x, y := pdf.GetXY()
	pdf.Line(x, y, 195, y)
	pdf.Ln(4)

	if sheet.Title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 8, tr(sheet.Title), "", 1, "C", false, 0, "")
		pdf.Ln(2)
	}

	for _, f := range sheet.Fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 6, tr(f.Label), "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(f.Value), "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	widths := columnWidths(len(sheet.Table.Headers), sheet.Widths, 180)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range sheet.Table.Headers {
		pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range sheet.Table.Rows {
		for i, h := range sheet.Table.Headers {
			pdf.CellFormat(widths[i], 7, tr(row[h]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if sheet.Footer != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, tr(sheet.Footer), "", 1, "R", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(n int, weights []float64, total float64) []float64 {
	out := make([]float64, n)
	if len(weights) != n {
		for i := range out {
			out[i] = total / float64(n)
		}
		return out
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	for i, w := range weights {
		out[i] = total * w / sum
	}
	return out
}
