package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the runway health tier of an inventory item
type Status string

const (
	StatusCritical Status = "CRITICAL"
	StatusWarning  Status = "WARNING"
	StatusHealthy  Status = "HEALTHY"
	StatusUnknown  Status = "UNKNOWN" // usage is zero or negative, no runway can be computed
)

// Required source columns
const (
	ColumnItemName       = "Item_Name"
	ColumnCurrentStock   = "Current_Stock"
	ColumnDailyUsageBase = "Daily_Usage_Base"
	ColumnExpiryDate     = "Expiry_Date"
)

// RequiredColumns lists the columns every inventory source must provide
var RequiredColumns = []string{ColumnItemName, ColumnCurrentStock, ColumnDailyUsageBase, ColumnExpiryDate}

// Thresholds holds the day boundaries between status tiers
type Thresholds struct {
	CriticalDays decimal.Decimal `json:"critical_days"` // days_remaining below this is CRITICAL
	WarningDays  decimal.Decimal `json:"warning_days"`  // days_remaining below this is WARNING
}

// DefaultThresholds returns the 7/14 day boundaries
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalDays: decimal.NewFromInt(7),
		WarningDays:  decimal.NewFromInt(14),
	}
}

// Classify maps a days-remaining value to its tier. Boundary values belong to the less severe tier.
func (t Thresholds) Classify(days decimal.Decimal) Status {
	if days.LessThan(t.CriticalDays) {
		return StatusCritical
	}
	if days.LessThan(t.WarningDays) {
		return StatusWarning
	}
	return StatusHealthy
}

// Field is a pass-through source column value
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// InventoryItem is one derived row of the inventory table
type InventoryItem struct {
	Key            string           `json:"key"`                      // row identity for per-row actions
	Row            int              `json:"row"`                      // 1-based data row position in the source
	ItemName       string           `json:"item_name"`
	CurrentStock   decimal.Decimal  `json:"current_stock"`
	DailyUsageBase decimal.Decimal  `json:"daily_usage_base"`
	ExpiryDate     time.Time        `json:"expiry_date"`
	DaysRemaining  *decimal.Decimal `json:"days_remaining,omitempty"` // nil when usage is not positive
	Status         Status           `json:"status"`
	Issue          string           `json:"issue,omitempty"`
	Extra          []Field          `json:"extra,omitempty"`
}

// runwayDays encodes a days-remaining value as a JSON number with one decimal place
type runwayDays decimal.Decimal

func (d runwayDays) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(d).StringFixed(1)), nil
}

func (i InventoryItem) MarshalJSON() ([]byte, error) {
	type plain InventoryItem
	out := struct {
		plain
		DaysRemaining *runwayDays `json:"days_remaining,omitempty"`
	}{plain: plain(i)}
	if i.DaysRemaining != nil {
		days := runwayDays(*i.DaysRemaining)
		out.DaysRemaining = &days
	}
	return json.Marshal(out)
}

// HasRunway reports whether the item takes part in runway-dependent views
func (i *InventoryItem) HasRunway() bool {
	return i.DaysRemaining != nil
}

// DerivedTable is the immutable result of one load of the inventory source
type DerivedTable struct {
	Source       string          `json:"source"`
	Fingerprint  string          `json:"fingerprint"`
	Thresholds   Thresholds      `json:"thresholds"`
	// Columns keeps the source order, with required columns under their canonical names
	Columns      []string        `json:"columns"`
	ExtraColumns []string        `json:"extra_columns,omitempty"`
	Items        []InventoryItem `json:"items"`
	LoadedAt     time.Time       `json:"loaded_at"`
}

// Len returns the number of rows in the table
func (t *DerivedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Items)
}

// FindByKey returns the item with the given key, if any
func (t *DerivedTable) FindByKey(key string) (*InventoryItem, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.Items {
		if t.Items[i].Key == key {
			return &t.Items[i], true
		}
	}
	return nil, false
}
