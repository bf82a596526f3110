package caching

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"supplyrunway/internal/metrics"
	"supplyrunway/internal/models"
	"supplyrunway/internal/repositories"
	"supplyrunway/internal/services"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

const loadGroupKey = "load"

type TableCacheOptions struct {
	Remote    CacheService // optional shared store
	RemoteTTL time.Duration
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Clock     func() time.Time
}

type entry struct {
	key   string
	table *models.DerivedTable
}

// TableCache holds the current derived table for one source.
// Readers always see a complete table; a failed load leaves the previous one in place.
type TableCache struct {
	source  repositories.InventorySource
	deriver services.InventoryService

	remote    CacheService
	remoteTTL time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	current atomic.Pointer[entry]
	lastErr atomic.Pointer[error]
	group   singleflight.Group
}

func NewTableCache(source repositories.InventorySource, deriver services.InventoryService, opts TableCacheOptions) *TableCache {
	c := &TableCache{
		source:    source,
		deriver:   deriver,
		remote:    opts.Remote,
		remoteTTL: opts.RemoteTTL,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Clock,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Source returns the identity of the cached source
func (c *TableCache) Source() string {
	return c.source.Identity()
}

// Current returns the table being served without loading, or nil
func (c *TableCache) Current() *models.DerivedTable {
	if e := c.current.Load(); e != nil {
		return e.table
	}
	return nil
}

// LastError returns the error of the most recent load, or nil if it succeeded
func (c *TableCache) LastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Get returns the current table, loading it on first use
func (c *TableCache) Get(ctx context.Context) (*models.DerivedTable, error) {
	if e := c.current.Load(); e != nil {
		return e.table, nil
	}

	v, err, _ := c.group.Do(loadGroupKey, func() (any, error) {
		if e := c.current.Load(); e != nil {
			return e.table, nil
		}
		return c.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.DerivedTable), nil
}

// Refresh re-reads the source and swaps the table when its content or thresholds changed
func (c *TableCache) Refresh(ctx context.Context) (*models.DerivedTable, error) {
	v, err, _ := c.group.Do(loadGroupKey, func() (any, error) {
		return c.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.DerivedTable), nil
}

// Invalidate drops the current table, and its shared copy, so the next Get re-derives it.
// A failure to drop the shared copy is logged only.
func (c *TableCache) Invalidate(ctx context.Context) {
	old := c.current.Swap(nil)
	c.logger.Info("inventory table invalidated", "source", c.source.Identity())

	if old == nil || c.remote == nil {
		return
	}
	if err := c.remote.DeleteDerivedTable(ctx, old.key); err != nil {
		c.logger.Warn("failed to drop shared inventory table", "key", old.key, "error", err)
	}
}

func (c *TableCache) load(ctx context.Context) (*models.DerivedTable, error) {
	start := time.Now()

	raw, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, c.fail(err)
	}

	key := CacheKey(c.source.Identity(), raw.Fingerprint(), c.deriver.Thresholds())
	if e := c.current.Load(); e != nil && e.key == key {
		c.succeed()
		c.metrics.ObserveLoad(metrics.LoadUnchanged, time.Since(start))
		c.logger.Debug("inventory source unchanged", "source", c.source.Identity(), "key", key)
		return e.table, nil
	}

	if table := c.fromRemote(ctx, key); table != nil {
		c.swap(key, table)
		c.metrics.ObserveLoad(metrics.LoadRemote, time.Since(start))
		return table, nil
	}

	table, err := c.deriver.Derive(raw)
	if err != nil {
		return nil, c.fail(err)
	}
	table.LoadedAt = c.now().UTC()

	c.swap(key, table)
	c.metrics.ObserveLoad(metrics.LoadSwapped, time.Since(start))

	if c.remote != nil {
		if err := c.remote.SetDerivedTable(ctx, key, table, c.remoteTTL); err != nil {
			c.logger.Warn("failed to store derived table in shared cache", "key", key, "error", err)
		}
	}
	return table, nil
}

func (c *TableCache) fromRemote(ctx context.Context, key string) *models.DerivedTable {
	if c.remote == nil {
		return nil
	}
	table, err := c.remote.GetDerivedTable(ctx, key)
	if err != nil {
		c.logger.Warn("failed to read derived table from shared cache", "key", key, "error", err)
		return nil
	}
	return table
}

func (c *TableCache) swap(key string, table *models.DerivedTable) {
	c.current.Store(&entry{key: key, table: table})
	c.succeed()

	critical := 0
	for i := range table.Items {
		if table.Items[i].Status == models.StatusCritical {
			critical++
		}
	}
	c.metrics.SetTable(table.Len(), critical)
	c.logger.Info("inventory table loaded",
		"source", table.Source,
		"rows", table.Len(),
		"critical", critical,
		"fingerprint", table.Fingerprint,
	)
}

func (c *TableCache) succeed() {
	c.lastErr.Store(nil)
}

func (c *TableCache) fail(err error) error {
	c.lastErr.Store(&err)
	c.metrics.ObserveLoad(metrics.LoadFailed, 0)

	attrs := []any{"source", c.source.Identity(), "error", err}
	var rowErr *models.RowError
	if errors.As(err, &rowErr) {
		attrs = append(attrs, "row", rowErr.Row, "column", rowErr.Column)
	}
	if c.current.Load() != nil {
		c.logger.Error("inventory load failed, keeping previous table", attrs...)
	} else {
		c.logger.Error("inventory load failed", attrs...)
	}
	return err
}

// CacheKey identifies a derived table by source, content and thresholds
func CacheKey(identity, fingerprint string, thresholds models.Thresholds) string {
	d := xxhash.New()
	for _, part := range []string{identity, fingerprint, thresholds.CriticalDays.String(), thresholds.WarningDays.String()} {
		_, _ = d.WriteString(strconv.Itoa(len(part)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(part)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
