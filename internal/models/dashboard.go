package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SummaryCard is one metric card at the top of the dashboard
type SummaryCard struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta,omitempty"` // display-only annotation, not computed
}

// DashboardSummary holds the aggregate counters
type DashboardSummary struct {
	TotalSKUCount     int           `json:"total_sku_count"`
	CriticalCount     int           `json:"critical_count"`
	ExpiringSoonCount int           `json:"expiring_soon_count"`
	ExpiryCutoff      time.Time     `json:"expiry_cutoff"`
	SystemHealth      string        `json:"system_health"` // configured placeholder
	Cards             []SummaryCard `json:"cards"`
}

// RunwayBar is one bar of the ranked days-remaining chart
type RunwayBar struct {
	Key           string          `json:"key"`
	ItemName      string          `json:"item_name"`
	DaysRemaining decimal.Decimal `json:"days_remaining"`
	Status        Status          `json:"status"`
	Color         string          `json:"color"`
	WidthPercent  float64         `json:"width_percent"` // bar length relative to the longest runway
}

func (b RunwayBar) MarshalJSON() ([]byte, error) {
	type plain RunwayBar
	return json.Marshal(struct {
		plain
		DaysRemaining runwayDays `json:"days_remaining"`
	}{plain(b), runwayDays(b.DaysRemaining)})
}

// CriticalAlert is a procurement alert for a CRITICAL item
type CriticalAlert struct {
	Key           string          `json:"key"`
	ItemName      string          `json:"item_name"`
	DaysRemaining decimal.Decimal `json:"days_remaining"`
	Message       string          `json:"message"`
	ActionPath    string          `json:"action_path"`
}

func (a CriticalAlert) MarshalJSON() ([]byte, error) {
	type plain CriticalAlert
	return json.Marshal(struct {
		plain
		DaysRemaining runwayDays `json:"days_remaining"`
	}{plain(a), runwayDays(a.DaysRemaining)})
}

// TableCell is one cell of the detailed table
type TableCell struct {
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// DetailedTable is the full styled table of derived rows
type DetailedTable struct {
	Columns []string      `json:"columns"`
	Rows    [][]TableCell `json:"rows"`
}

// Dashboard bundles every view rendered for one page load
type Dashboard struct {
	Summary     DashboardSummary `json:"summary"`
	Runway      []RunwayBar      `json:"runway"`
	Alerts      []CriticalAlert  `json:"alerts"`
	Table       DetailedTable    `json:"table"`
	Source      string           `json:"source"`
	LoadedAt    time.Time        `json:"loaded_at"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// OrderAck acknowledges a "generate order" action. It is never stored.
type OrderAck struct {
	ID            uuid.UUID       `json:"id"`
	Key           string          `json:"key"`
	ItemName      string          `json:"item_name"`
	DaysRemaining decimal.Decimal `json:"days_remaining"`
	Message       string          `json:"message"`
	IssuedAt      time.Time       `json:"issued_at"`
}

func (a OrderAck) MarshalJSON() ([]byte, error) {
	type plain OrderAck
	return json.Marshal(struct {
		plain
		DaysRemaining runwayDays `json:"days_remaining"`
	}{plain(a), runwayDays(a.DaysRemaining)})
}
