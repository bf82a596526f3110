package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"supplyrunway/internal/models"

	"github.com/shopspring/decimal"
)

// IssueNonPositiveUsage marks rows whose usage rate gives no runway
const IssueNonPositiveUsage = "daily usage must be positive"

// divisionPrecision is the number of decimal places kept before rounding to one place
const divisionPrecision = 16

// dateLayouts are tried in order when parsing expiry dates
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

type InventoryService interface {
	// Derive computes days remaining and status for every row of raw, keeping row order
	Derive(raw *models.RawTable) (*models.DerivedTable, error)
	Thresholds() models.Thresholds
}

type inventoryService struct {
	thresholds models.Thresholds
}

func NewInventoryService(thresholds models.Thresholds) InventoryService {
	return &inventoryService{thresholds: thresholds}
}

func (s *inventoryService) Thresholds() models.Thresholds {
	return s.thresholds
}

func (s *inventoryService) Derive(raw *models.RawTable) (*models.DerivedTable, error) {
	if raw == nil {
		return nil, errors.New("raw table is nil")
	}

	index, extra, err := resolveColumns(raw)
	if err != nil {
		return nil, err
	}

	table := &models.DerivedTable{
		Source:      raw.Source,
		Fingerprint: raw.Fingerprint(),
		Thresholds:  s.thresholds,
		Items:       make([]models.InventoryItem, 0, len(raw.Rows)),
	}
	for _, col := range extra {
		table.ExtraColumns = append(table.ExtraColumns, raw.Columns[col])
	}
	table.Columns = sourceColumns(raw.Columns, index)

	seen := make(map[string]int)
	for i, record := range raw.Rows {
		item, err := s.deriveRow(i+1, record, index)
		if err != nil {
			return nil, err
		}
		for _, col := range extra {
			item.Extra = append(item.Extra, models.Field{Name: raw.Columns[col], Value: cell(record, col)})
		}
		item.Key = rowKey(item, seen)
		table.Items = append(table.Items, item)
	}

	return table, nil
}

func (s *inventoryService) deriveRow(row int, record []string, index map[string]int) (models.InventoryItem, error) {
	item := models.InventoryItem{
		Row:      row,
		ItemName: strings.TrimSpace(cell(record, index[models.ColumnItemName])),
	}

	stockStr := strings.TrimSpace(cell(record, index[models.ColumnCurrentStock]))
	stock, err := decimal.NewFromString(stockStr)
	if err != nil {
		return item, &models.RowError{Row: row, Column: models.ColumnCurrentStock, Value: stockStr, Err: errors.New("not a number")}
	}
	if stock.IsNegative() {
		return item, &models.RowError{Row: row, Column: models.ColumnCurrentStock, Value: stockStr, Err: errors.New("must not be negative")}
	}
	item.CurrentStock = stock

	usageStr := strings.TrimSpace(cell(record, index[models.ColumnDailyUsageBase]))
	usage, err := decimal.NewFromString(usageStr)
	if err != nil {
		return item, &models.RowError{Row: row, Column: models.ColumnDailyUsageBase, Value: usageStr, Err: errors.New("not a number")}
	}
	item.DailyUsageBase = usage

	expiryStr := strings.TrimSpace(cell(record, index[models.ColumnExpiryDate]))
	expiry, err := ParseDate(expiryStr)
	if err != nil {
		return item, &models.RowError{Row: row, Column: models.ColumnExpiryDate, Value: expiryStr, Err: err}
	}
	item.ExpiryDate = expiry

	if !usage.IsPositive() {
		item.Status = models.StatusUnknown
		item.Issue = IssueNonPositiveUsage
		return item, nil
	}

	days := DaysRemaining(stock, usage)
	item.DaysRemaining = &days
	item.Status = s.thresholds.Classify(days)
	return item, nil
}

// DaysRemaining divides stock by usage and rounds half-to-even to one decimal place.
// usage must be positive.
func DaysRemaining(stock, usage decimal.Decimal) decimal.Decimal {
	return stock.DivRound(usage, divisionPrecision).RoundBank(1)
}

// ParseDate parses a calendar date in any of the accepted layouts and returns it at UTC midnight
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

// resolveColumns maps required columns to their positions and lists the remaining ones.
// Names match case-insensitively, ignoring surrounding blanks.
func resolveColumns(raw *models.RawTable) (map[string]int, []int, error) {
	positions := make(map[string]int, len(raw.Columns))
	for i, name := range raw.Columns {
		norm := normalizeColumn(name)
		if _, dup := positions[norm]; !dup {
			positions[norm] = i
		}
	}

	index := make(map[string]int, len(models.RequiredColumns))
	required := make(map[int]bool, len(models.RequiredColumns))
	var missing []string
	for _, name := range models.RequiredColumns {
		pos, ok := positions[normalizeColumn(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		index[name] = pos
		required[pos] = true
	}
	if len(missing) > 0 {
		return nil, nil, &models.MissingColumnsError{Source: raw.Source, Columns: missing}
	}

	var extra []int
	for i := range raw.Columns {
		if !required[i] {
			extra = append(extra, i)
		}
	}
	return index, extra, nil
}

// sourceColumns keeps the source header order, naming required columns canonically
func sourceColumns(header []string, index map[string]int) []string {
	columns := slices.Clone(header)
	for name, pos := range index {
		columns[pos] = name
	}
	return columns
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// rowKey derives a stable identity from the item name, suffixing repeated names
func rowKey(item models.InventoryItem, seen map[string]int) string {
	base := item.ItemName
	if base == "" {
		base = fmt.Sprintf("row-%d", item.Row)
	}
	seen[base]++
	if n := seen[base]; n > 1 {
		return fmt.Sprintf("%s#%d", base, n)
	}
	return base
}
