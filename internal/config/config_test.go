package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"supplyrunway/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, SourceCSV, cfg.Source.Kind)
	assert.Equal(t, "inventory.csv", cfg.Source.Path)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, "92%", cfg.Placeholders.SystemHealth)

	thresholds := cfg.StatusThresholds()
	assert.True(t, thresholds.CriticalDays.Equal(decimal.NewFromInt(7)))
	assert.True(t, thresholds.WarningDays.Equal(decimal.NewFromInt(14)))

	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), cfg.ExpiryCutoff(time.Now()))

	palette := cfg.StatusPalette()
	assert.Equal(t, "#ef553b", palette[models.StatusCritical])
	assert.Equal(t, "#fec032", palette[models.StatusWarning])
	assert.Equal(t, "#636efa", palette[models.StatusHealthy])
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("RUNWAY_SOURCE_PATH", "/data/stock.csv")
	t.Setenv("RUNWAY_THRESHOLDS_CRITICAL_DAYS", "5")
	t.Setenv("RUNWAY_THRESHOLDS_WARNING_DAYS", "10")
	t.Setenv("RUNWAY_PALETTE_HEALTHY", "#28a745")
	t.Setenv("RUNWAY_REFRESH_INTERVAL", "30s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/stock.csv", cfg.Source.Path)
	assert.Equal(t, 5.0, cfg.Thresholds.CriticalDays)
	assert.Equal(t, 10.0, cfg.Thresholds.WarningDays)
	assert.Equal(t, "#28a745", cfg.Palette.Healthy)
	assert.Equal(t, 30*time.Second, cfg.Refresh.Interval)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runway.yaml")
	content := `
source:
  kind: xlsx
  path: stock.xlsx
  sheet: Inventory
expiry:
  cutoff_date: ""
  window_days: 30
cache:
  redis:
    enabled: true
    ttl: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourceXLSX, cfg.Source.Kind)
	assert.Equal(t, "Inventory", cfg.Source.Sheet)
	assert.True(t, cfg.Cache.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.Redis.TTL)

	now := time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), cfg.ExpiryCutoff(now))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"unknown source", func(c *Config) { c.Source.Kind = "ftp" }, `unknown source.kind "ftp"`},
		{"missing path", func(c *Config) { c.Source.Path = "" }, "source.path is required"},
		{"bad delimiter", func(c *Config) { c.Source.Delimiter = ";;" }, "single character"},
		{"minio incomplete", func(c *Config) { c.Source.Kind = SourceMinio }, "source.minio"},
		{"postgres without dsn", func(c *Config) { c.Source.Kind = SourcePostgres }, "source.postgres.dsn"},
		{"zero critical", func(c *Config) { c.Thresholds.CriticalDays = 0 }, "critical_days must be positive"},
		{"inverted thresholds", func(c *Config) { c.Thresholds.WarningDays = 3 }, "warning_days must be greater"},
		{"bad cutoff", func(c *Config) { c.Expiry.CutoffDate = "01/04/2026" }, "cutoff_date"},
		{"no window", func(c *Config) { c.Expiry.CutoffDate = ""; c.Expiry.WindowDays = 0 }, "window_days"},
		{"bad color", func(c *Config) { c.Palette.Warning = "amber" }, "palette.warning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, base.Validate())
}
