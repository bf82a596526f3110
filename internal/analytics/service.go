package analytics

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"time"

	"supplyrunway/internal/models"

	"github.com/shopspring/decimal"
)

// Derived column headers of the detailed table
const (
	ColumnDaysRemaining = "Days_Remaining"
	ColumnStatus        = "Status"
)

// Card labels
const (
	CardTotalSKUs    = "Total SKU Count"
	CardCritical     = "Critical Stockouts"
	CardExpiringSoon = "Expiring Soon"
	CardSystemHealth = "System Health"
)

const defaultUnknownColor = "#8b949e"

var (
	hexColor     = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	hundred      = decimal.NewFromInt(100)
	paletteTiers = []models.Status{models.StatusCritical, models.StatusWarning, models.StatusHealthy}
)

// Placeholders are display-only values shown on the summary cards. They are configured, never computed.
type Placeholders struct {
	SystemHealth      string
	SystemHealthDelta string
	CriticalDelta     string
	ExpiringDelta     string
}

type Options struct {
	// Palette maps each status tier to a hex color. CRITICAL, WARNING and HEALTHY are required.
	Palette      map[models.Status]string
	Placeholders Placeholders
	// ExpiryCutoff returns the end of the expiring-soon window for a render time
	ExpiryCutoff func(now time.Time) time.Time
}

// AnalyticsService projects a derived table into the dashboard views.
// Every projection is read-only and safe to call concurrently.
type AnalyticsService struct {
	palette      map[models.Status]string
	placeholders Placeholders
	expiryCutoff func(now time.Time) time.Time
}

func NewAnalyticsService(opts Options) *AnalyticsService {
	s := &AnalyticsService{
		palette:      opts.Palette,
		placeholders: opts.Placeholders,
		expiryCutoff: opts.ExpiryCutoff,
	}
	if s.expiryCutoff == nil {
		s.expiryCutoff = func(now time.Time) time.Time {
			return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 90)
		}
	}
	return s
}

// ValidatePalette reports a missing tier or a color that is not hex
func (s *AnalyticsService) ValidatePalette() error {
	for _, status := range paletteTiers {
		color, ok := s.palette[status]
		if !ok {
			return fmt.Errorf("%w: no color for %s", models.ErrInvalidPalette, status)
		}
		if !hexColor.MatchString(color) {
			return fmt.Errorf("%w: %s color %q is not a hex color", models.ErrInvalidPalette, status, color)
		}
	}
	if color, ok := s.palette[models.StatusUnknown]; ok && !hexColor.MatchString(color) {
		return fmt.Errorf("%w: %s color %q is not a hex color", models.ErrInvalidPalette, models.StatusUnknown, color)
	}
	return nil
}

func (s *AnalyticsService) color(status models.Status) string {
	if c, ok := s.palette[status]; ok {
		return c
	}
	return defaultUnknownColor
}

// ExpiryCutoff returns the expiring-soon boundary used for a render at now
func (s *AnalyticsService) ExpiryCutoff(now time.Time) time.Time {
	return s.expiryCutoff(now)
}

// Summary counts SKUs, critical items and items expiring strictly before cutoff
func (s *AnalyticsService) Summary(table *models.DerivedTable, cutoff time.Time) models.DashboardSummary {
	summary := models.DashboardSummary{
		TotalSKUCount: table.Len(),
		ExpiryCutoff:  cutoff,
		SystemHealth:  s.placeholders.SystemHealth,
	}
	if table != nil {
		for i := range table.Items {
			item := &table.Items[i]
			if item.Status == models.StatusCritical {
				summary.CriticalCount++
			}
			if item.ExpiryDate.Before(cutoff) {
				summary.ExpiringSoonCount++
			}
		}
	}

	summary.Cards = []models.SummaryCard{
		{Label: CardTotalSKUs, Value: strconv.Itoa(summary.TotalSKUCount)},
		{Label: CardCritical, Value: strconv.Itoa(summary.CriticalCount), Delta: s.placeholders.CriticalDelta},
		{Label: CardExpiringSoon, Value: strconv.Itoa(summary.ExpiringSoonCount), Delta: s.placeholders.ExpiringDelta},
		{Label: CardSystemHealth, Value: s.placeholders.SystemHealth, Delta: s.placeholders.SystemHealthDelta},
	}
	return summary
}

// Runway ranks items with a runway by days remaining, shortest first. Ties keep table order.
func (s *AnalyticsService) Runway(table *models.DerivedTable) ([]models.RunwayBar, error) {
	if err := s.ValidatePalette(); err != nil {
		return nil, err
	}

	bars := []models.RunwayBar{}
	if table == nil {
		return bars, nil
	}

	longest := decimal.Zero
	for i := range table.Items {
		item := &table.Items[i]
		if !item.HasRunway() {
			continue
		}
		days := *item.DaysRemaining
		if days.GreaterThan(longest) {
			longest = days
		}
		bars = append(bars, models.RunwayBar{
			Key:           item.Key,
			ItemName:      item.ItemName,
			DaysRemaining: days,
			Status:        item.Status,
			Color:         s.color(item.Status),
		})
	}

	slices.SortStableFunc(bars, func(a, b models.RunwayBar) int {
		return a.DaysRemaining.Cmp(b.DaysRemaining)
	})

	if longest.IsPositive() {
		for i := range bars {
			bars[i].WidthPercent = bars[i].DaysRemaining.Div(longest).Mul(hundred).Round(1).InexactFloat64()
		}
	}
	return bars, nil
}

// Alerts lists CRITICAL items in table order
func (s *AnalyticsService) Alerts(table *models.DerivedTable) []models.CriticalAlert {
	alerts := []models.CriticalAlert{}
	if table == nil {
		return alerts
	}
	for i := range table.Items {
		item := &table.Items[i]
		if item.Status != models.StatusCritical || !item.HasRunway() {
			continue
		}
		alerts = append(alerts, models.CriticalAlert{
			Key:           item.Key,
			ItemName:      item.ItemName,
			DaysRemaining: *item.DaysRemaining,
			Message:       fmt.Sprintf("%s: Run-out in %s days!", item.ItemName, item.DaysRemaining.StringFixed(1)),
			ActionPath:    OrderPath(item.Key),
		})
	}
	return alerts
}

// OrderPath is the endpoint that drafts an order for the item with key
func OrderPath(key string) string {
	return "/api/v1/alerts/" + url.PathEscape(key) + "/order"
}

// DetailedTable renders every row in source column order followed by the derived columns.
// The status cell carries its palette color.
func (s *AnalyticsService) DetailedTable(table *models.DerivedTable) (models.DetailedTable, error) {
	if err := s.ValidatePalette(); err != nil {
		return models.DetailedTable{}, err
	}

	source := sourceColumns(table)
	columns := append(slices.Clone(source), ColumnDaysRemaining, ColumnStatus)

	detailed := models.DetailedTable{Columns: columns, Rows: [][]models.TableCell{}}
	if table == nil {
		return detailed, nil
	}

	for i := range table.Items {
		item := &table.Items[i]
		row := make([]models.TableCell, 0, len(columns))

		seen := make(map[string]bool, len(models.RequiredColumns))
		extra := 0
		for _, col := range source {
			if value, ok := requiredCell(item, col); ok && !seen[col] {
				seen[col] = true
				row = append(row, models.TableCell{Value: value})
				continue
			}
			value := ""
			if extra < len(item.Extra) {
				value = item.Extra[extra].Value
			}
			extra++
			row = append(row, models.TableCell{Value: value})
		}

		days := ""
		if item.HasRunway() {
			days = item.DaysRemaining.StringFixed(1)
		}
		row = append(row,
			models.TableCell{Value: days},
			models.TableCell{Value: string(item.Status), Color: s.color(item.Status)},
		)
		detailed.Rows = append(detailed.Rows, row)
	}
	return detailed, nil
}

// sourceColumns returns the table's source header, or required then extra columns for tables without one
func sourceColumns(table *models.DerivedTable) []string {
	if table != nil && len(table.Columns) > 0 {
		return table.Columns
	}
	columns := slices.Clone(models.RequiredColumns)
	if table != nil {
		columns = append(columns, table.ExtraColumns...)
	}
	return columns
}

func requiredCell(item *models.InventoryItem, column string) (string, bool) {
	switch column {
	case models.ColumnItemName:
		return item.ItemName, true
	case models.ColumnCurrentStock:
		return item.CurrentStock.String(), true
	case models.ColumnDailyUsageBase:
		return item.DailyUsageBase.String(), true
	case models.ColumnExpiryDate:
		return item.ExpiryDate.Format(time.DateOnly), true
	}
	return "", false
}

// Dashboard bundles all four views for a render at now
func (s *AnalyticsService) Dashboard(table *models.DerivedTable, now time.Time) (*models.Dashboard, error) {
	runway, err := s.Runway(table)
	if err != nil {
		return nil, err
	}
	detailed, err := s.DetailedTable(table)
	if err != nil {
		return nil, err
	}

	dashboard := &models.Dashboard{
		Summary:     s.Summary(table, s.ExpiryCutoff(now)),
		Runway:      runway,
		Alerts:      s.Alerts(table),
		Table:       detailed,
		GeneratedAt: now,
	}
	if table != nil {
		dashboard.Source = table.Source
		dashboard.LoadedAt = table.LoadedAt
	}
	return dashboard, nil
}
