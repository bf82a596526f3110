package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"supplyrunway/internal/caching"
	"supplyrunway/internal/services"

	"github.com/labstack/echo/v4"
)

const checkTimeout = 2 * time.Second

// Service states
const (
	StateHealthy     = "healthy"
	StateDegraded    = "degraded"
	StateUnhealthy   = "unhealthy"
	StateUnavailable = "unavailable"
)

// HealthHandlers handles health check endpoints
type HealthHandlers struct {
	tables  InventoryTables
	cache   caching.CacheService  // nil when the shared cache is disabled
	storage services.MinioService // nil unless the source is an object store
	bucket  string
	version string
	started time.Time
}

func NewHealthHandlers(tables InventoryTables, cache caching.CacheService, storage services.MinioService, bucket, version string) *HealthHandlers {
	return &HealthHandlers{
		tables:  tables,
		cache:   cache,
		storage: storage,
		bucket:  bucket,
		version: version,
		started: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Services   map[string]string `json:"services"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
	Goroutines int               `json:"goroutines"`
}

// HealthCheck reports the state of the inventory table and its backing services.
// A degraded dependency answers 206 so load balancers keep routing.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	health := &HealthStatus{
		Status:     StateHealthy,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Services:   make(map[string]string),
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Version:    h.version,
		Goroutines: runtime.NumGoroutine(),
	}

	health.Services["inventory"] = h.inventoryState()
	if health.Services["inventory"] != StateHealthy {
		health.Status = StateDegraded
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			health.Services["redis"] = StateUnhealthy
			health.Status = StateDegraded
		} else {
			health.Services["redis"] = StateHealthy
		}
	}

	if h.storage != nil {
		if ok, err := h.storage.BucketExists(ctx, h.bucket); err != nil || !ok {
			health.Services["storage"] = StateUnhealthy
			health.Status = StateDegraded
		} else {
			health.Services["storage"] = StateHealthy
		}
	}

	statusCode := http.StatusOK
	if health.Status == StateDegraded {
		statusCode = http.StatusPartialContent
	}
	return c.JSON(statusCode, health)
}

func (h *HealthHandlers) inventoryState() string {
	switch {
	case h.tables.Current() == nil:
		return StateUnavailable
	case h.tables.LastError() != nil:
		return StateDegraded
	default:
		return StateHealthy
	}
}

// ReadinessCheck is ready once a table has been loaded, even if a later refresh failed
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	table := h.tables.Current()
	if table == nil {
		resp := map[string]string{
			"status":  "not_ready",
			"message": "Inventory table not loaded",
			"source":  h.tables.Source(),
		}
		if err := h.tables.LastError(); err != nil {
			resp["error"] = err.Error()
		}
		return c.JSON(http.StatusServiceUnavailable, resp)
	}

	resp := map[string]any{
		"status":    "ready",
		"source":    table.Source,
		"rows":      table.Len(),
		"loaded_at": table.LoadedAt,
	}
	if err := h.tables.LastError(); err != nil {
		resp["last_refresh_error"] = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// LivenessCheck determines if the application is running
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
