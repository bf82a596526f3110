package background

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"supplyrunway/internal/models"

	"github.com/go-co-op/gocron/v2"
)

// Job names
const (
	JobInventoryRefresh = "inventory-refresh"
	JobCriticalAlerts   = "critical-alerts"
)

type TableRefresher interface {
	Refresh(ctx context.Context) (*models.DerivedTable, error)
}

type AlertChecker interface {
	ScheduledCriticalCheck(ctx context.Context) error
}

// JobScheduler runs the periodic inventory jobs
type JobScheduler struct {
	scheduler gocron.Scheduler
	refresher TableRefresher
	alerts    AlertChecker
	logger    *slog.Logger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler registers a refresh job every interval followed by a critical-alert check.
// A zero interval registers no jobs.
func NewJobScheduler(refresher TableRefresher, alerts AlertChecker, interval time.Duration, logger *slog.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		refresher: refresher,
		alerts:    alerts,
		logger:    logger,
		jobs:      make(map[string]gocron.Job),
	}

	if interval > 0 {
		if err := js.registerJobs(interval); err != nil {
			_ = scheduler.Shutdown()
			return nil, err
		}
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", "jobs", len(js.jobs))
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(interval time.Duration) error {
	if err := js.AddJob(JobInventoryRefresh, interval, js.refreshInventory, context.Background()); err != nil {
		return fmt.Errorf("failed to create inventory refresh job: %w", err)
	}
	return nil
}

// refreshInventory reloads the source and logs the critical items of the resulting table
func (js *JobScheduler) refreshInventory(ctx context.Context) error {
	start := time.Now()
	table, err := js.refresher.Refresh(ctx)
	if err != nil {
		js.logger.Error("scheduled inventory refresh failed", "error", err)
		return err
	}
	js.logger.Debug("scheduled inventory refresh completed", "rows", table.Len(), "elapsed", time.Since(start))

	if js.alerts != nil {
		return js.alerts.ScheduledCriticalCheck(ctx)
	}
	return nil
}

// AddJob adds a named singleton job running every interval
func (js *JobScheduler) AddJob(name string, interval time.Duration, taskFn any, params ...any) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(taskFn, params...),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	js.jobs[name] = job
	js.logger.Debug("registered background job", "name", name, "interval", interval)
	return nil
}

// RunNow triggers a registered job immediately, outside its schedule
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, exists := js.jobs[name]
	js.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no job named %q", name)
	}
	return job.RunNow()
}

// JobStatus describes one scheduled job
type JobStatus struct {
	Name    string    `json:"name"`
	LastRun time.Time `json:"last_run,omitempty"`
	NextRun time.Time `json:"next_run,omitempty"`
}

func (js *JobScheduler) GetJobStatus() []JobStatus {
	js.mu.RLock()
	defer js.mu.RUnlock()

	status := make([]JobStatus, 0, len(js.jobs))
	for name, job := range js.jobs {
		s := JobStatus{Name: name}
		if last, err := job.LastRun(); err == nil {
			s.LastRun = last
		}
		if next, err := job.NextRun(); err == nil {
			s.NextRun = next
		}
		status = append(status, s)
	}
	return status
}
