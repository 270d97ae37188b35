package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format; use .xlsx or .csv")

// ReadDataset parses the first sheet of an .xlsx workbook or a .csv file. The first row is the
// header; blank rows are skipped but keep their place in the numbering.
func ReadDataset(filename string, r io.Reader) (Dataset, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return Dataset{}, ErrUnsupportedFormat
	}
	if err != nil {
		return Dataset{}, err
	}
	return toDataset(records)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func toDataset(records [][]string) (Dataset, error) {
	if len(records) == 0 {
		return Dataset{}, fmt.Errorf("spreadsheet is empty")
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	data := Dataset{Headers: headers}
	for n, record := range records[1:] {
		if blank(record) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(record) {
				continue
			}
			row[h] = strings.TrimSpace(record[i])
		}
		data.Rows = append(data.Rows, row)
		data.Lines = append(data.Lines, n+1)
	}
	return data, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
