package upload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"rfqdash/pkg/store"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format: must be .csv or .xlsx")

// Parse reads an uploaded file into a table, choosing the parser by extension.
func Parse(r io.Reader, fileName string) (store.Table, error) {
	var grid [][]string
	var err error
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		grid, err = parseCSV(r)
	case ".xlsx":
		grid, err = parseExcel(r)
	default:
		return store.Table{}, ErrUnsupportedFormat
	}
	if err != nil {
		return store.Table{}, err
	}
	if len(grid) < 2 {
		return store.Table{}, errors.New("file must contain a header row and at least one data row")
	}
	for i, h := range grid[0] {
		grid[0][i] = strings.TrimSpace(h)
	}
	return store.FromGrid(dropBlankRows(grid)), nil
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}

// parseExcel reads the first sheet of an xlsx workbook.
func parseExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return rows, nil
}

func dropBlankRows(grid [][]string) [][]string {
	out := grid[:1]
	for _, row := range grid[1:] {
		for _, v := range row {
			if strings.TrimSpace(v) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// SameHeader reports whether two headers name the same columns in the same
// order, ignoring case and surrounding space.
func SameHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(strings.TrimSpace(a[i]), strings.TrimSpace(b[i])) {
			return false
		}
	}
	return true
}
