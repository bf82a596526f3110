package analytics

import (
	"errors"
	"testing"
	"time"

	"supplyrunway/internal/models"
	"supplyrunway/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var cutoff = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func defaultPalette() map[models.Status]string {
	return map[models.Status]string{
		models.StatusCritical: "#ef553b",
		models.StatusWarning:  "#fec032",
		models.StatusHealthy:  "#636efa",
		models.StatusUnknown:  "#8b949e",
	}
}

type AnalyticsServiceTestSuite struct {
	suite.Suite
	service *AnalyticsService
	deriver services.InventoryService
}

func (suite *AnalyticsServiceTestSuite) SetupTest() {
	suite.service = NewAnalyticsService(Options{
		Palette: defaultPalette(),
		Placeholders: Placeholders{
			SystemHealth:      "92%",
			SystemHealthDelta: "Optimal",
			CriticalDelta:     "-2 since yesterday",
			ExpiringDelta:     "Check Dates",
		},
		ExpiryCutoff: func(time.Time) time.Time { return cutoff },
	})
	suite.deriver = services.NewInventoryService(models.DefaultThresholds())
}

func TestAnalyticsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AnalyticsServiceTestSuite))
}

func (suite *AnalyticsServiceTestSuite) derive(columns []string, rows ...[]string) *models.DerivedTable {
	if columns == nil {
		columns = models.RequiredColumns
	}
	table, err := suite.deriver.Derive(&models.RawTable{Source: "csv:inventory.csv", Columns: columns, Rows: rows})
	require.NoError(suite.T(), err)
	return table
}

func (suite *AnalyticsServiceTestSuite) sample() *models.DerivedTable {
	return suite.derive(nil,
		[]string{"Amoxicillin", "40", "10", "2026-05-01"}, // 4.0 CRITICAL
		[]string{"Gauze", "140", "10", "2026-12-01"},      // 14.0 HEALTHY
		[]string{"Saline", "100", "10", "2026-03-01"},     // 10.0 WARNING, expiring
		[]string{"Bandages", "50", "0", "2026-02-01"},     // no runway, expiring
		[]string{"Insulin", "12", "4", "2026-09-01"},      // 3.0 CRITICAL
		[]string{"Syringes", "40", "10", "2026-07-01"},    // 4.0 CRITICAL, ties Amoxicillin
	)
}

func (suite *AnalyticsServiceTestSuite) TestSummary() {
	summary := suite.service.Summary(suite.sample(), cutoff)

	assert.Equal(suite.T(), 6, summary.TotalSKUCount)
	assert.Equal(suite.T(), 3, summary.CriticalCount)
	assert.Equal(suite.T(), 2, summary.ExpiringSoonCount)
	assert.Equal(suite.T(), cutoff, summary.ExpiryCutoff)
	assert.Equal(suite.T(), "92%", summary.SystemHealth)

	assert.Equal(suite.T(), []models.SummaryCard{
		{Label: CardTotalSKUs, Value: "6"},
		{Label: CardCritical, Value: "3", Delta: "-2 since yesterday"},
		{Label: CardExpiringSoon, Value: "2", Delta: "Check Dates"},
		{Label: CardSystemHealth, Value: "92%", Delta: "Optimal"},
	}, summary.Cards)
}

func (suite *AnalyticsServiceTestSuite) TestSummary_ExpiringIsStrictlyBeforeCutoff() {
	table := suite.derive(nil,
		[]string{"Saline", "100", "10", "2026-03-01"},
		[]string{"Gloves", "100", "10", "2026-04-01"},
	)
	assert.Equal(suite.T(), 1, suite.service.Summary(table, cutoff).ExpiringSoonCount)
}

func (suite *AnalyticsServiceTestSuite) TestRunway_SortedStableAndColored() {
	bars, err := suite.service.Runway(suite.sample())
	require.NoError(suite.T(), err)

	names := make([]string, len(bars))
	for i, bar := range bars {
		names[i] = bar.ItemName
	}
	assert.Equal(suite.T(), []string{"Insulin", "Amoxicillin", "Syringes", "Saline", "Gauze"}, names)

	for i := 1; i < len(bars); i++ {
		assert.True(suite.T(), bars[i-1].DaysRemaining.LessThanOrEqual(bars[i].DaysRemaining))
	}

	assert.Equal(suite.T(), "#ef553b", bars[0].Color)
	assert.Equal(suite.T(), "#fec032", bars[3].Color)
	assert.Equal(suite.T(), "#636efa", bars[4].Color)
	assert.Equal(suite.T(), 100.0, bars[4].WidthPercent)
	assert.Equal(suite.T(), 21.4, bars[0].WidthPercent)
}

func (suite *AnalyticsServiceTestSuite) TestRunway_AllZeroDays() {
	bars, err := suite.service.Runway(suite.derive(nil, []string{"Empty", "0", "5", "2026-01-01"}))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), bars, 1)
	assert.Equal(suite.T(), 0.0, bars[0].WidthPercent)
}

func (suite *AnalyticsServiceTestSuite) TestAlerts_ExactlyCriticalRowsInTableOrder() {
	table := suite.sample()
	alerts := suite.service.Alerts(table)

	var expected []string
	for _, item := range table.Items {
		if item.Status == models.StatusCritical {
			expected = append(expected, item.Key)
		}
	}

	keys := make([]string, len(alerts))
	for i, alert := range alerts {
		keys[i] = alert.Key
	}
	assert.Equal(suite.T(), expected, keys)
	assert.Equal(suite.T(), []string{"Amoxicillin", "Insulin", "Syringes"}, keys)

	assert.Equal(suite.T(), "Amoxicillin: Run-out in 4.0 days!", alerts[0].Message)
	assert.Equal(suite.T(), "/api/v1/alerts/Amoxicillin/order", alerts[0].ActionPath)
}

func (suite *AnalyticsServiceTestSuite) TestAlerts_ActionPathIsEscaped() {
	table := suite.derive(nil,
		[]string{"Saline 0.9%", "1", "1", "2026-01-01"},
		[]string{"Saline 0.9%", "2", "1", "2026-01-01"},
	)
	alerts := suite.service.Alerts(table)
	require.Len(suite.T(), alerts, 2)
	assert.Equal(suite.T(), "/api/v1/alerts/Saline%200.9%25/order", alerts[0].ActionPath)
	assert.Equal(suite.T(), "/api/v1/alerts/Saline%200.9%25%232/order", alerts[1].ActionPath)
}

func (suite *AnalyticsServiceTestSuite) TestDetailedTable() {
	table := suite.derive(
		[]string{"Item_Name", "Category", "Current_Stock", "Daily_Usage_Base", "Expiry_Date"},
		[]string{"Amoxicillin", "Antibiotic", "40", "10", "2026-05-01"},
		[]string{"Bandages", "Consumable", "50", "0", "2026-02-01"},
	)

	detailed, err := suite.service.DetailedTable(table)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), []string{"Item_Name", "Category", "Current_Stock", "Daily_Usage_Base", "Expiry_Date", "Days_Remaining", "Status"}, detailed.Columns)
	require.Len(suite.T(), detailed.Rows, 2)

	assert.Equal(suite.T(), []models.TableCell{
		{Value: "Amoxicillin"}, {Value: "Antibiotic"}, {Value: "40"}, {Value: "10"},
		{Value: "2026-05-01"}, {Value: "4.0"}, {Value: "CRITICAL", Color: "#ef553b"},
	}, detailed.Rows[0])
	assert.Equal(suite.T(), models.TableCell{Value: ""}, detailed.Rows[1][5])
	assert.Equal(suite.T(), models.TableCell{Value: "UNKNOWN", Color: "#8b949e"}, detailed.Rows[1][6])
}

func (suite *AnalyticsServiceTestSuite) TestDetailedTable_KeepsSourceColumnOrder() {
	table := suite.derive(
		[]string{"Supplier", " expiry_date ", "Item_Name", "Lot", "Daily_Usage_Base", "Current_Stock", "Item_Name"},
		[]string{"Acme", "2026-05-01", "Amoxicillin", "L-7", "10", "40", "duplicate"},
	)

	detailed, err := suite.service.DetailedTable(table)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), []string{"Supplier", "Expiry_Date", "Item_Name", "Lot", "Daily_Usage_Base", "Current_Stock", "Item_Name", "Days_Remaining", "Status"}, detailed.Columns)
	assert.Equal(suite.T(), []models.TableCell{
		{Value: "Acme"}, {Value: "2026-05-01"}, {Value: "Amoxicillin"}, {Value: "L-7"}, {Value: "10"}, {Value: "40"},
		{Value: "duplicate"}, {Value: "4.0"}, {Value: "CRITICAL", Color: "#ef553b"},
	}, detailed.Rows[0])
}

func (suite *AnalyticsServiceTestSuite) TestDetailedTable_WithoutSourceHeader() {
	table := suite.derive(nil, []string{"Gauze", "140", "10", "2026-12-01"})
	table.Columns = nil
	table.ExtraColumns = []string{"Category"}
	table.Items[0].Extra = []models.Field{{Name: "Category", Value: "Consumable"}}

	detailed, err := suite.service.DetailedTable(table)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Item_Name", "Current_Stock", "Daily_Usage_Base", "Expiry_Date", "Category", "Days_Remaining", "Status"}, detailed.Columns)
	assert.Equal(suite.T(), "Consumable", detailed.Rows[0][4].Value)
}

func (suite *AnalyticsServiceTestSuite) TestSameColorInChartAndTable() {
	table := suite.sample()
	bars, err := suite.service.Runway(table)
	require.NoError(suite.T(), err)
	detailed, err := suite.service.DetailedTable(table)
	require.NoError(suite.T(), err)

	statusColors := map[string]string{}
	for _, row := range detailed.Rows {
		status := row[len(row)-1]
		statusColors[status.Value] = status.Color
	}
	for _, bar := range bars {
		assert.Equal(suite.T(), statusColors[string(bar.Status)], bar.Color)
	}
}

func (suite *AnalyticsServiceTestSuite) TestZeroUsageExcludedFromRunwayViews() {
	table := suite.derive(nil,
		[]string{"Bandages", "50", "0", "2026-02-01"},
		[]string{"Gauze", "140", "10", "2026-12-01"},
	)

	bars, err := suite.service.Runway(table)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), bars, 1)
	assert.Equal(suite.T(), "Gauze", bars[0].ItemName)
	assert.Empty(suite.T(), suite.service.Alerts(table))

	summary := suite.service.Summary(table, cutoff)
	assert.Equal(suite.T(), 2, summary.TotalSKUCount)
	assert.Equal(suite.T(), 0, summary.CriticalCount)
	assert.Equal(suite.T(), 1, summary.ExpiringSoonCount)
}

func (suite *AnalyticsServiceTestSuite) TestEmptyTable() {
	for name, table := range map[string]*models.DerivedTable{
		"no rows":   suite.derive(nil),
		"not found": nil,
	} {
		suite.Run(name, func() {
			dashboard, err := suite.service.Dashboard(table, time.Now())
			require.NoError(suite.T(), err)

			assert.Equal(suite.T(), 0, dashboard.Summary.TotalSKUCount)
			assert.Equal(suite.T(), 0, dashboard.Summary.CriticalCount)
			assert.Equal(suite.T(), 0, dashboard.Summary.ExpiringSoonCount)
			assert.NotNil(suite.T(), dashboard.Runway)
			assert.Empty(suite.T(), dashboard.Runway)
			assert.NotNil(suite.T(), dashboard.Alerts)
			assert.Empty(suite.T(), dashboard.Alerts)
			assert.Empty(suite.T(), dashboard.Table.Rows)
			assert.Len(suite.T(), dashboard.Table.Columns, 6)
		})
	}
}

func (suite *AnalyticsServiceTestSuite) TestDashboard() {
	table := suite.sample()
	table.LoadedAt = time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	dashboard, err := suite.service.Dashboard(table, now)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "csv:inventory.csv", dashboard.Source)
	assert.Equal(suite.T(), table.LoadedAt, dashboard.LoadedAt)
	assert.Equal(suite.T(), now, dashboard.GeneratedAt)
	assert.Equal(suite.T(), cutoff, dashboard.Summary.ExpiryCutoff)
	assert.Len(suite.T(), dashboard.Runway, 5)
	assert.Len(suite.T(), dashboard.Alerts, 3)
	assert.Len(suite.T(), dashboard.Table.Rows, 6)
}

func (suite *AnalyticsServiceTestSuite) TestDashboard_InvalidPaletteFailsLoudly() {
	tests := []struct {
		name    string
		palette map[models.Status]string
	}{
		{"missing tier", map[models.Status]string{models.StatusCritical: "#ef553b", models.StatusWarning: "#fec032"}},
		{"not hex", map[models.Status]string{models.StatusCritical: "red", models.StatusWarning: "#fec032", models.StatusHealthy: "#636efa"}},
		{"bad unknown", map[models.Status]string{models.StatusCritical: "#ef553b", models.StatusWarning: "#fec032", models.StatusHealthy: "#636efa", models.StatusUnknown: "grey"}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			service := NewAnalyticsService(Options{Palette: tt.palette})
			dashboard, err := service.Dashboard(suite.sample(), time.Now())
			assert.Nil(suite.T(), dashboard)
			assert.True(suite.T(), errors.Is(err, models.ErrInvalidPalette))
		})
	}
}

func TestDefaultExpiryCutoff(t *testing.T) {
	service := NewAnalyticsService(Options{Palette: defaultPalette()})
	now := time.Date(2026, 1, 1, 17, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), service.ExpiryCutoff(now))
}
