package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"supplyrunway/internal/analytics"
	"supplyrunway/internal/caching"
	"supplyrunway/internal/common"
	"supplyrunway/internal/config"
	"supplyrunway/internal/handlers"
	"supplyrunway/internal/jobs"
	"supplyrunway/internal/jobs/background"
	"supplyrunway/internal/logger"
	"supplyrunway/internal/metrics"
	"supplyrunway/internal/middleware"
	"supplyrunway/internal/repositories"
	"supplyrunway/internal/services"
	"supplyrunway/pkg/database"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", os.Getenv("RUNWAY_CONFIG"), "path to a YAML, TOML or JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	if err := run(cfg, log); err != nil {
		log.Error("dashboard stopped", "error", err)
		os.Exit(1)
	}
}

// inventorySource holds the configured source and anything that has to be closed with it
type inventorySource struct {
	source  repositories.InventorySource
	storage services.MinioService
	bucket  string
	close   func()
}

func newInventorySource(ctx context.Context, cfg config.SourceConfig, log *slog.Logger) (*inventorySource, error) {
	delimiter, err := repositories.DelimiterRune(cfg.Delimiter)
	if err != nil {
		return nil, err
	}

	out := &inventorySource{close: func() {}}
	switch cfg.Kind {
	case config.SourceCSV:
		out.source = repositories.NewCSVSource(cfg.Path, delimiter)
	case config.SourceXLSX:
		out.source = repositories.NewXLSXSource(cfg.Path, cfg.Sheet)
	case config.SourceMinio:
		store, err := services.NewMinioService(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
		if err != nil {
			return nil, fmt.Errorf("failed to create object storage client: %w", err)
		}
		out.storage = store
		out.bucket = cfg.Minio.Bucket
		out.source = repositories.NewObjectSource(store, cfg.Minio.Bucket, cfg.Minio.Object, cfg.Sheet, delimiter)
	case config.SourcePostgres:
		pool, err := database.NewPool(ctx, cfg.Postgres.DSN, log)
		if err != nil {
			return nil, err
		}
		out.close = pool.Close
		out.source = repositories.NewPostgresSource(pool, cfg.Postgres.Query)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
	return out, nil
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := newInventorySource(ctx, cfg.Source, log)
	if err != nil {
		return err
	}
	defer src.close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var remote caching.CacheService
	if cfg.Cache.Redis.Enabled {
		remote = caching.NewRedisCacheService(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, log)
	}

	tables := caching.NewTableCache(src.source, services.NewInventoryService(cfg.StatusThresholds()), caching.TableCacheOptions{
		Remote:    remote,
		RemoteTTL: cfg.Cache.Redis.TTL,
		Logger:    log,
		Metrics:   m,
	})
	if _, err := tables.Get(ctx); err != nil {
		// The page reports the failure until a later load succeeds
		log.Error("initial inventory load failed", "source", tables.Source(), "error", err)
	}

	analyticsSvc := analytics.NewAnalyticsService(analytics.Options{
		Palette: cfg.StatusPalette(),
		Placeholders: analytics.Placeholders{
			SystemHealth:      cfg.Placeholders.SystemHealth,
			SystemHealthDelta: cfg.Placeholders.SystemHealthDelta,
			CriticalDelta:     cfg.Placeholders.CriticalDelta,
			ExpiringDelta:     cfg.Placeholders.ExpiringDelta,
		},
		ExpiryCutoff: cfg.ExpiryCutoff,
	})
	alerts := jobs.NewInventoryAlertService(tables, analyticsSvc, log, m)

	scheduler, err := background.NewJobScheduler(tables, alerts, cfg.Refresh.Interval, log)
	if err != nil {
		return fmt.Errorf("failed to create job scheduler: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error("failed to stop job scheduler", "error", err)
		}
	}()

	if fs, ok := src.source.(repositories.FileSource); ok && cfg.Refresh.Watch {
		watcher := jobs.NewSourceWatcher(fs.Path(), tables, log)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Error("source watcher stopped", "path", fs.Path(), "error", err)
			}
		}()
	}

	dashboardHandlers, err := handlers.NewDashboardHandlers(tables, analyticsSvc, cfg.StatusPalette(), cfg.App.Name, log)
	if err != nil {
		return fmt.Errorf("failed to create dashboard handlers: %w", err)
	}
	jobHandlers := handlers.NewJobHandlers(tables, alerts, scheduler, log)
	healthHandlers := handlers.NewHealthHandlers(tables, remote, src.storage, src.bucket, version)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = common.HTTPErrorHandler(log)

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.RequestMetrics(m))

	versions := middleware.NewVersionMiddleware()
	api := versions.VersionRoute(e, versions.GetCurrentVersion())
	e.GET("/api/versions", versions.ListVersions)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	handlers.RegisterRoutes(e, api, dashboardHandlers, jobHandlers, healthHandlers)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.HTTP.Addr, "version", version, "source", tables.Source())
		if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
