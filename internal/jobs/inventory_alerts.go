package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"supplyrunway/internal/analytics"
	"supplyrunway/internal/metrics"
	"supplyrunway/internal/models"

	"github.com/google/uuid"
)

// TableProvider returns the inventory table currently served
type TableProvider interface {
	Get(ctx context.Context) (*models.DerivedTable, error)
}

type InventoryAlertService struct {
	tables    TableProvider
	analytics *analytics.AnalyticsService
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewInventoryAlertService(tables TableProvider, analyticsSvc *analytics.AnalyticsService, logger *slog.Logger, m *metrics.Metrics) *InventoryAlertService {
	return &InventoryAlertService{
		tables:    tables,
		analytics: analyticsSvc,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// CheckCritical returns the procurement alerts of the current table
func (a *InventoryAlertService) CheckCritical(ctx context.Context) ([]models.CriticalAlert, error) {
	table, err := a.tables.Get(ctx)
	if err != nil {
		return nil, err
	}
	return a.analytics.Alerts(table), nil
}

func (a *InventoryAlertService) LogCriticalAlerts(ctx context.Context, alerts []models.CriticalAlert) {
	if len(alerts) == 0 {
		a.logger.InfoContext(ctx, "no critical inventory alerts")
		return
	}

	for _, alert := range alerts {
		a.logger.WarnContext(ctx, "critical inventory runway",
			"key", alert.Key,
			"item", alert.ItemName,
			"days_remaining", alert.DaysRemaining.StringFixed(1),
		)
	}
}

// ScheduledCriticalCheck logs every critical item of the current table
func (a *InventoryAlertService) ScheduledCriticalCheck(ctx context.Context) error {
	alerts, err := a.CheckCritical(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "critical inventory check failed", "error", err)
		return err
	}
	a.LogCriticalAlerts(ctx, alerts)
	return nil
}

// DraftOrder acknowledges a "generate order" action for the critical item with key.
// The acknowledgment is transient: it is logged and counted, never stored.
func (a *InventoryAlertService) DraftOrder(ctx context.Context, key string) (*models.OrderAck, error) {
	table, err := a.tables.Get(ctx)
	if err != nil {
		return nil, errors.Join(models.ErrTableNotLoaded, err)
	}

	item, ok := table.FindByKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrItemNotFound, key)
	}
	if item.Status != models.StatusCritical || !item.HasRunway() {
		return nil, fmt.Errorf("%w: %q is %s", models.ErrNotCritical, key, item.Status)
	}

	ack := &models.OrderAck{
		ID:            uuid.New(),
		Key:           item.Key,
		ItemName:      item.ItemName,
		DaysRemaining: *item.DaysRemaining,
		Message:       fmt.Sprintf("Drafting Purchase Order for %s...", item.ItemName),
		IssuedAt:      a.now().UTC(),
	}

	a.metrics.OrderDrafted()
	a.logger.InfoContext(ctx, "purchase order drafted",
		"order_id", ack.ID.String(),
		"key", ack.Key,
		"item", ack.ItemName,
		"days_remaining", ack.DaysRemaining.StringFixed(1),
	)
	return ack, nil
}
