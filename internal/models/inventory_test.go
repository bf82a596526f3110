package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholds_Classify(t *testing.T) {
	thresholds := DefaultThresholds()
	tests := []struct {
		days string
		want Status
	}{
		{"0.0", StatusCritical},
		{"6.9", StatusCritical},
		{"7.0", StatusWarning},
		{"13.9", StatusWarning},
		{"14.0", StatusHealthy},
		{"120.5", StatusHealthy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, thresholds.Classify(decimal.RequireFromString(tt.days)), tt.days)
	}
}

func TestInventoryItem_JSONDaysRemaining(t *testing.T) {
	days := decimal.NewFromInt(4)
	item := InventoryItem{
		Key:            "Amoxicillin",
		Row:            1,
		ItemName:       "Amoxicillin",
		CurrentStock:   decimal.NewFromInt(40),
		DailyUsageBase: decimal.NewFromInt(10),
		ExpiryDate:     time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		DaysRemaining:  &days,
		Status:         StatusCritical,
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"days_remaining":4.0`)
	assert.Contains(t, string(data), `"item_name":"Amoxicillin"`)
	assert.Contains(t, string(data), `"status":"CRITICAL"`)

	var decoded InventoryItem
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.DaysRemaining)
	assert.True(t, days.Equal(*decoded.DaysRemaining))
	assert.Equal(t, item.ExpiryDate, decoded.ExpiryDate)

	item.DaysRemaining = nil
	data, err = json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "days_remaining")
}

func TestDashboardViews_JSONDaysRemaining(t *testing.T) {
	days := decimal.RequireFromString("14")

	for name, view := range map[string]any{
		"bar":   RunwayBar{Key: "Gauze", ItemName: "Gauze", DaysRemaining: days, Status: StatusHealthy, Color: "#636efa", WidthPercent: 100},
		"alert": CriticalAlert{Key: "Gauze", ItemName: "Gauze", DaysRemaining: days, Message: "Gauze: Run-out in 14.0 days!"},
		"ack":   OrderAck{ID: uuid.New(), Key: "Gauze", ItemName: "Gauze", DaysRemaining: days},
		"table": &DerivedTable{Items: []InventoryItem{{Key: "Gauze", DaysRemaining: &days}}},
	} {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(view)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"days_remaining":14.0`)
			assert.Contains(t, string(data), `"key":"Gauze"`)
		})
	}
}
