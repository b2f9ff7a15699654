package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swellmap/swellmap/internal/settings"
	"github.com/swellmap/swellmap/internal/worker"
)

type mockRequester struct {
	mu    sync.Mutex
	calls [][]string
}

func (m *mockRequester) GetReportsForSpots(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string(nil), ids...))
}

func (m *mockRequester) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockRequester) last() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func TestFavoritesWarmer(t *testing.T) {
	ctx := context.Background()
	svc := settings.NewService(settings.ServiceConfig{
		Repository: settings.NewMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, svc.SetFavoriteSpots(ctx, []string{"a", "b"}))

	requester := &mockRequester{}
	w := worker.NewFavoritesWarmer(worker.FavoritesWarmerConfig{
		Settings:  svc,
		Requester: requester,
		Logger:    zerolog.Nop(),
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- w.Run(runCtx) }()

	require.Eventually(t, func() bool { return requester.callCount() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, requester.last())

	_, err := svc.ToggleFavorite(ctx, "c")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		last := requester.last()
		return len(last) == 3 && last[2] == "c"
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Runs, int64(2))
	assert.GreaterOrEqual(t, stats.SpotsRequested, int64(5))
	assert.False(t, stats.LastRunAt.IsZero())
}

func TestFavoritesWarmer_NoFavorites(t *testing.T) {
	svc := settings.NewService(settings.ServiceConfig{
		Repository: settings.NewMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
	requester := &mockRequester{}
	w := worker.NewFavoritesWarmer(worker.FavoritesWarmerConfig{
		Settings:  svc,
		Requester: requester,
		Logger:    zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return w.Stats().Runs == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 0, requester.callCount())
}
