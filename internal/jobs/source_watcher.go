package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"supplyrunway/internal/models"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Refresher reloads the inventory table
type Refresher interface {
	Refresh(ctx context.Context) (*models.DerivedTable, error)
}

// SourceWatcher refreshes the table when a local source file changes.
// The parent directory is watched so editors that replace the file atomically are seen too.
type SourceWatcher struct {
	path      string
	refresher Refresher
	logger    *slog.Logger
	debounce  time.Duration
}

func NewSourceWatcher(path string, refresher Refresher, logger *slog.Logger) *SourceWatcher {
	return &SourceWatcher{
		path:      filepath.Clean(path),
		refresher: refresher,
		logger:    logger,
		debounce:  defaultDebounce,
	}
}

// Run watches until ctx is done
func (w *SourceWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching inventory source", "path", w.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
		wg    sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
	}()

	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		wg.Add(1)
		timer = time.AfterFunc(w.debounce, func() {
			defer wg.Done()
			w.refresh(ctx)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("inventory source changed", "path", w.path, "op", event.Op.String())
				schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *SourceWatcher) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.refresher.Refresh(ctx); err != nil {
		w.logger.Error("refresh after source change failed", "path", w.path, "error", err)
	}
}
