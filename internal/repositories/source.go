package repositories

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"supplyrunway/internal/models"

	"github.com/xuri/excelize/v2"
)

// InventorySource reads the raw inventory table from wherever it lives
type InventorySource interface {
	// Identity names the source for cache keys and logs
	Identity() string
	Fetch(ctx context.Context) (*models.RawTable, error)
}

// FileSource is implemented by sources backed by a local file, so changes can be watched
type FileSource interface {
	InventorySource
	Path() string
}

// ParseCSV reads a delimited table whose first record is the header
func ParseCSV(r io.Reader, source string, delimiter rune) (*models.RawTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", source, err)
	}

	table := &models.RawTable{Source: source, Rows: [][]string{}}
	if len(records) == 0 {
		return table, nil
	}
	table.Columns = records[0]
	table.Rows = records[1:]
	return table, nil
}

// ParseXLSX reads a worksheet whose first non-empty row is the header. An empty sheet name selects the first sheet.
func ParseXLSX(r io.Reader, source, sheet string) (*models.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", source, err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", source)
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("workbook %s has no sheet %q", source, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, source, err)
	}

	table := &models.RawTable{Source: source, Rows: [][]string{}}
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if table.Columns == nil {
			table.Columns = row
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ParseByExtension picks the parser from the name's extension, defaulting to CSV
func ParseByExtension(r io.Reader, source, name, sheet string, delimiter rune) (*models.RawTable, error) {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return ParseXLSX(r, source, sheet)
	}
	return ParseCSV(r, source, delimiter)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// DelimiterRune returns the first rune of s, or a comma when s is empty
func DelimiterRune(s string) (rune, error) {
	runes := []rune(s)
	switch len(runes) {
	case 0:
		return ',', nil
	case 1:
		return runes[0], nil
	default:
		return 0, errors.New("delimiter must be a single character")
	}
}
