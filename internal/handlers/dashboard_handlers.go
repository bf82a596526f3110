package handlers

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"supplyrunway/internal/analytics"
	"supplyrunway/internal/common"
	"supplyrunway/internal/models"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// InventoryTables is the cached inventory table the handlers read from
type InventoryTables interface {
	Get(ctx context.Context) (*models.DerivedTable, error)
	Refresh(ctx context.Context) (*models.DerivedTable, error)
	Invalidate(ctx context.Context)
	Current() *models.DerivedTable
	LastError() error
	Source() string
}

type DashboardHandlers struct {
	tables    InventoryTables
	analytics *analytics.AnalyticsService
	palette   map[models.Status]string
	title     string
	page      *template.Template
	logger    *slog.Logger
	now       func() time.Time
}

type pageData struct {
	Title         string
	CriticalColor string
	Dashboard     *models.Dashboard
	Error         string
}

func NewDashboardHandlers(tables InventoryTables, analyticsSvc *analytics.AnalyticsService, palette map[models.Status]string, title string, logger *slog.Logger) (*DashboardHandlers, error) {
	page, err := template.ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}
	return &DashboardHandlers{
		tables:    tables,
		analytics: analyticsSvc,
		palette:   palette,
		title:     title,
		page:      page,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Page renders the HTML dashboard
func (h *DashboardHandlers) Page(c echo.Context) error {
	data := pageData{Title: h.title, CriticalColor: h.palette[models.StatusCritical]}
	status := http.StatusOK

	table, err := h.tables.Get(c.Request().Context())
	if err != nil {
		h.logger.Error("dashboard rendered without inventory", "error", err)
		data.Error = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		dashboard, err := h.analytics.Dashboard(table, h.now())
		if err != nil {
			h.logger.Error("failed to build dashboard", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		data.Dashboard = dashboard
	}

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render dashboard template", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to render dashboard")
	}
	return c.HTMLBlob(status, buf.Bytes())
}

// GetDashboard returns all four views as JSON
func (h *DashboardHandlers) GetDashboard(c echo.Context) error {
	table, err := h.tables.Get(c.Request().Context())
	if err != nil {
		return common.SendUnavailableError(c, err)
	}

	dashboard, err := h.analytics.Dashboard(table, h.now())
	if err != nil {
		h.logger.Error("failed to build dashboard", "error", err)
		if errors.Is(err, models.ErrInvalidPalette) {
			return common.SendServerError(c, err.Error())
		}
		return common.SendServerError(c, "Failed to build dashboard")
	}
	return c.JSON(http.StatusOK, dashboard)
}

// GetInventory returns the derived table as JSON
func (h *DashboardHandlers) GetInventory(c echo.Context) error {
	table, err := h.tables.Get(c.Request().Context())
	if err != nil {
		return common.SendUnavailableError(c, err)
	}
	return c.JSON(http.StatusOK, table)
}
