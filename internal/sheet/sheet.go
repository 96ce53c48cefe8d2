// Package sheet reads the spreadsheet-shaped reference inputs (data
// dictionary, access policy) from .xlsx or .csv files.
package sheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a header row plus data rows. Every data row is padded to the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read loads the first sheet of an .xlsx file or a whole .csv file
func Read(path string) (*Table, error) {
	var (
		raw [][]string
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		raw, err = readXLSX(path)
	case ".csv":
		raw, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported sheet format: %s", filepath.Ext(path))
	}

	if err != nil {
		return nil, err
	}

	return normalize(raw), nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	return rows, nil
}

// normalize trims cells, drops fully blank rows and pads rows to the header width
func normalize(raw [][]string) *Table {
	t := &Table{}

	for _, row := range raw {
		cells := make([]string, len(row))
		blank := true

		for i, cell := range row {
			cells[i] = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
			if cells[i] != "" {
				blank = false
			}
		}

		if blank {
			continue
		}

		if t.Header == nil {
			t.Header = cells
			continue
		}

		for len(cells) < len(t.Header) {
			cells = append(cells, "")
		}

		t.Rows = append(t.Rows, cells)
	}

	return t
}

// Index returns the position of the first header matching one of names,
// compared case-insensitively, or -1.
func (t *Table) Index(names ...string) int {
	for i, h := range t.Header {
		for _, name := range names {
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}

	return -1
}

// Cell returns row[i], or "" when i is out of range
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}

	return row[i]
}
