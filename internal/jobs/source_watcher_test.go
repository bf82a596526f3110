package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"supplyrunway/internal/logger"
	"supplyrunway/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context) (*models.DerivedTable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DerivedTable), args.Error(1)
}

func TestSourceWatcher_RefreshesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte("Item_Name\n"), 0o644))

	refreshed := make(chan struct{}, 10)
	refresher := &MockRefresher{}
	refresher.On("Refresh", mock.Anything).Run(func(mock.Arguments) {
		refreshed <- struct{}{}
	}).Return(&models.DerivedTable{}, nil)

	watcher := NewSourceWatcher(path, refresher, logger.Discard())
	watcher.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// unrelated files in the directory are ignored
	require.Eventually(t, func() bool {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(path, []byte("Item_Name\nGauze\n"), 0o644))
		select {
		case <-refreshed:
			return true
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestSourceWatcher_MissingDirectory(t *testing.T) {
	watcher := NewSourceWatcher(filepath.Join(t.TempDir(), "absent", "inventory.csv"), &MockRefresher{}, logger.Discard())
	require.Error(t, watcher.Run(context.Background()))
}
