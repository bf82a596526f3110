package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"supplyrunway/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const envPrefix = "RUNWAY"

// Source kinds
const (
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourceMinio    = "minio"
	SourcePostgres = "postgres"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Config struct {
	App struct {
		Env  string
		Name string
	} `mapstructure:"app"`

	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	Source SourceConfig `mapstructure:"source"`

	Thresholds struct {
		CriticalDays float64 `mapstructure:"critical_days"`
		WarningDays  float64 `mapstructure:"warning_days"`
	} `mapstructure:"thresholds"`

	Expiry struct {
		CutoffDate string `mapstructure:"cutoff_date"` // fixed "end of the soon-window", YYYY-MM-DD
		WindowDays int    `mapstructure:"window_days"` // used when cutoff_date is empty
	} `mapstructure:"expiry"`

	Palette struct {
		Critical string
		Warning  string
		Healthy  string
		Unknown  string
	} `mapstructure:"palette"`

	Placeholders struct {
		SystemHealth      string `mapstructure:"system_health"`
		SystemHealthDelta string `mapstructure:"system_health_delta"`
		CriticalDelta     string `mapstructure:"critical_delta"`
		ExpiringDelta     string `mapstructure:"expiring_delta"`
	} `mapstructure:"placeholders"`

	Cache struct {
		Redis struct {
			Enabled  bool
			Addr     string
			Password string
			DB       int           `mapstructure:"db"`
			TTL      time.Duration `mapstructure:"ttl"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`

	Refresh struct {
		Interval time.Duration
		Watch    bool
	} `mapstructure:"refresh"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

type SourceConfig struct {
	Kind      string
	Path      string
	Delimiter string
	Sheet     string

	Minio struct {
		Endpoint  string
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		UseSSL    bool   `mapstructure:"use_ssl"`
		Bucket    string
		Object    string
	} `mapstructure:"minio"`

	Postgres struct {
		DSN   string `mapstructure:"dsn"`
		Query string
	} `mapstructure:"postgres"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.name", "Analyst Inventory Optimizer")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 5*time.Second)

	v.SetDefault("source.kind", SourceCSV)
	v.SetDefault("source.path", "inventory.csv")
	v.SetDefault("source.delimiter", ",")
	v.SetDefault("source.sheet", "")
	v.SetDefault("source.minio.endpoint", "")
	v.SetDefault("source.minio.access_key", "")
	v.SetDefault("source.minio.secret_key", "")
	v.SetDefault("source.minio.use_ssl", false)
	v.SetDefault("source.minio.bucket", "")
	v.SetDefault("source.minio.object", "")
	v.SetDefault("source.postgres.dsn", "")
	v.SetDefault("source.postgres.query", "SELECT * FROM inventory ORDER BY 1")

	v.SetDefault("thresholds.critical_days", 7)
	v.SetDefault("thresholds.warning_days", 14)

	v.SetDefault("expiry.cutoff_date", "2026-04-01")
	v.SetDefault("expiry.window_days", 90)

	v.SetDefault("palette.critical", "#ef553b")
	v.SetDefault("palette.warning", "#fec032")
	v.SetDefault("palette.healthy", "#636efa")
	v.SetDefault("palette.unknown", "#8b949e")

	v.SetDefault("placeholders.system_health", "92%")
	v.SetDefault("placeholders.system_health_delta", "Optimal")
	v.SetDefault("placeholders.critical_delta", "-2 since yesterday")
	v.SetDefault("placeholders.expiring_delta", "Check Dates")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.ttl", time.Hour)

	v.SetDefault("refresh.interval", 5*time.Minute)
	v.SetDefault("refresh.watch", true)

	v.SetDefault("metrics.enabled", true)
}

// Load reads the optional config file at path, a .env file if present, and RUNWAY_* environment overrides.
// An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	var c Config

	if _, err := os.Stat(".env"); err == nil {
		if err := gotenv.Load(); err != nil {
			return c, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects configurations the dashboard cannot run with
func (c Config) Validate() error {
	var errs []error

	switch c.Source.Kind {
	case SourceCSV, SourceXLSX:
		if c.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required"))
		}
		if c.Source.Kind == SourceCSV && len([]rune(c.Source.Delimiter)) != 1 {
			errs = append(errs, fmt.Errorf("source.delimiter must be a single character, got %q", c.Source.Delimiter))
		}
	case SourceMinio:
		if c.Source.Minio.Endpoint == "" || c.Source.Minio.Bucket == "" || c.Source.Minio.Object == "" {
			errs = append(errs, errors.New("source.minio endpoint, bucket and object are required"))
		}
	case SourcePostgres:
		if c.Source.Postgres.DSN == "" {
			errs = append(errs, errors.New("source.postgres.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.kind %q", c.Source.Kind))
	}

	if c.Thresholds.CriticalDays <= 0 {
		errs = append(errs, errors.New("thresholds.critical_days must be positive"))
	}
	if c.Thresholds.WarningDays <= c.Thresholds.CriticalDays {
		errs = append(errs, errors.New("thresholds.warning_days must be greater than thresholds.critical_days"))
	}

	if c.Expiry.CutoffDate != "" {
		if _, err := time.Parse(time.DateOnly, c.Expiry.CutoffDate); err != nil {
			errs = append(errs, fmt.Errorf("expiry.cutoff_date must be YYYY-MM-DD: %w", err))
		}
	} else if c.Expiry.WindowDays <= 0 {
		errs = append(errs, errors.New("expiry.window_days must be positive when expiry.cutoff_date is empty"))
	}

	for name, color := range map[string]string{
		"critical": c.Palette.Critical,
		"warning":  c.Palette.Warning,
		"healthy":  c.Palette.Healthy,
		"unknown":  c.Palette.Unknown,
	} {
		if !hexColor.MatchString(color) {
			errs = append(errs, fmt.Errorf("palette.%s must be a hex color, got %q", name, color))
		}
	}

	if c.Refresh.Interval < 0 {
		errs = append(errs, errors.New("refresh.interval must not be negative"))
	}

	return errors.Join(errs...)
}

// StatusThresholds converts the configured day boundaries
func (c Config) StatusThresholds() models.Thresholds {
	return models.Thresholds{
		CriticalDays: decimal.NewFromFloat(c.Thresholds.CriticalDays),
		WarningDays:  decimal.NewFromFloat(c.Thresholds.WarningDays),
	}
}

// ExpiryCutoff returns the end of the expiring-soon window. A fixed cutoff date wins over the rolling window.
func (c Config) ExpiryCutoff(now time.Time) time.Time {
	if c.Expiry.CutoffDate != "" {
		if t, err := time.Parse(time.DateOnly, c.Expiry.CutoffDate); err == nil {
			return t
		}
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, c.Expiry.WindowDays)
}

// StatusPalette returns the single color table used by every view
func (c Config) StatusPalette() map[models.Status]string {
	return map[models.Status]string{
		models.StatusCritical: c.Palette.Critical,
		models.StatusWarning:  c.Palette.Warning,
		models.StatusHealthy:  c.Palette.Healthy,
		models.StatusUnknown:  c.Palette.Unknown,
	}
}
