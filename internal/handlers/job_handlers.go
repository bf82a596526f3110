package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"supplyrunway/internal/common"
	"supplyrunway/internal/jobs/background"
	"supplyrunway/internal/models"

	"github.com/labstack/echo/v4"
)

type OrderDrafter interface {
	DraftOrder(ctx context.Context, key string) (*models.OrderAck, error)
}

type JobRunner interface {
	GetJobStatus() []background.JobStatus
	RunNow(name string) error
}

type JobHandlers struct {
	tables    InventoryTables
	orders    OrderDrafter
	scheduler JobRunner // nil when no jobs are scheduled
	logger    *slog.Logger
}

func NewJobHandlers(tables InventoryTables, orders OrderDrafter, scheduler JobRunner, logger *slog.Logger) *JobHandlers {
	return &JobHandlers{
		tables:    tables,
		orders:    orders,
		scheduler: scheduler,
		logger:    logger,
	}
}

// RefreshResponse summarizes the table served after an explicit refresh
type RefreshResponse struct {
	Source      string    `json:"source"`
	Rows        int       `json:"rows"`
	Fingerprint string    `json:"fingerprint"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// DraftOrder acknowledges a "generate order" action for one critical item
func (h *JobHandlers) DraftOrder(c echo.Context) error {
	// echo matches on the raw path only when it carries escapes such as %2F,
	// otherwise the parameter is already decoded
	key := c.Param("key")
	if c.Request().URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(key); err == nil {
			key = unescaped
		}
	}
	if key == "" {
		return common.SendClientError(c, "item key is required")
	}

	ack, err := h.orders.DraftOrder(c.Request().Context(), key)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, ack)
	case errors.Is(err, models.ErrItemNotFound):
		return common.SendNotFoundError(c, "Inventory item")
	case errors.Is(err, models.ErrNotCritical):
		return common.SendConflictError(c, err.Error())
	case errors.Is(err, models.ErrTableNotLoaded):
		return common.SendUnavailableError(c, err)
	default:
		h.logger.Error("failed to draft order", "key", key, "error", err)
		return common.SendServerError(c, "Failed to draft order")
	}
}

// RefreshCache re-reads the inventory source. On failure the previous table keeps being served.
func (h *JobHandlers) RefreshCache(c echo.Context) error {
	table, err := h.tables.Refresh(c.Request().Context())
	if err != nil {
		var missing *models.MissingColumnsError
		var rowErr *models.RowError
		switch {
		case errors.As(err, &missing):
			return c.JSON(http.StatusUnprocessableEntity, common.CreateErrorResponse(common.CodeInvalidSource, err.Error(), map[string]string{
				"source": missing.Source,
			}))
		case errors.As(err, &rowErr):
			return c.JSON(http.StatusUnprocessableEntity, common.CreateErrorResponse(common.CodeInvalidSource, err.Error(), map[string]string{
				"column": rowErr.Column,
				"value":  rowErr.Value,
			}))
		default:
			return common.SendUnavailableError(c, err)
		}
	}

	return c.JSON(http.StatusOK, RefreshResponse{
		Source:      table.Source,
		Rows:        table.Len(),
		Fingerprint: table.Fingerprint,
		LoadedAt:    table.LoadedAt,
	})
}

// InvalidateCache drops the served table and its shared copy. The next read reloads the source.
func (h *JobHandlers) InvalidateCache(c echo.Context) error {
	h.tables.Invalidate(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]string{
		"status": "invalidated",
		"source": h.tables.Source(),
	})
}

// RunJob triggers a scheduled job outside its schedule. The job runs in the background.
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := c.Param("name")
	if h.scheduler == nil {
		return common.SendNotFoundError(c, "Job")
	}
	if err := h.scheduler.RunNow(name); err != nil {
		h.logger.Warn("failed to trigger job", "name", name, "error", err)
		return common.SendNotFoundError(c, "Job")
	}
	h.logger.Info("job triggered", "name", name)
	return c.JSON(http.StatusAccepted, map[string]string{
		"status": "triggered",
		"job":    name,
	})
}

// ListJobs reports the scheduled background jobs
func (h *JobHandlers) ListJobs(c echo.Context) error {
	status := []background.JobStatus{}
	if h.scheduler != nil {
		status = h.scheduler.GetJobStatus()
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total_jobs": len(status),
		"jobs":       status,
	})
}
