// Package worker runs background jobs that keep derived state warm.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/swellmap/swellmap/internal/settings"
)

// ReportRequester queues report fetches. spotsync.Engine satisfies it.
type ReportRequester interface {
	GetReportsForSpots(ids []string)
}

// FavoritesWarmerConfig holds configuration for the favorites warmer.
type FavoritesWarmerConfig struct {
	Settings  *settings.Service
	Requester ReportRequester
	Logger    zerolog.Logger
}

// FavoritesWarmer requests reports for every favorite spot at start-up and
// again whenever settings change, so the favorites list is filled without
// waiting for a UI to ask.
type FavoritesWarmer struct {
	settings  *settings.Service
	requester ReportRequester
	logger    zerolog.Logger
	trigger   chan []string

	mu    sync.Mutex
	stats WarmerStats
}

// WarmerStats counts warmer runs since start-up.
type WarmerStats struct {
	Runs           int64
	SpotsRequested int64
	LastRunAt      time.Time
}

// NewFavoritesWarmer creates a favorites warmer and subscribes it to
// settings changes.
func NewFavoritesWarmer(cfg FavoritesWarmerConfig) *FavoritesWarmer {
	w := &FavoritesWarmer{
		settings:  cfg.Settings,
		requester: cfg.Requester,
		logger:    cfg.Logger.With().Str("job", "favorites_warmer").Logger(),
		trigger:   make(chan []string, 1),
	}

	cfg.Settings.OnChange(func(s settings.Settings) {
		w.enqueue(s.FavoriteSpots)
	})

	return w
}

// Run requests the current favorites and then follows changes until ctx is
// done.
func (w *FavoritesWarmer) Run(ctx context.Context) error {
	w.warm(w.settings.FavoriteSpots(ctx))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ids := <-w.trigger:
			w.warm(ids)
		}
	}
}

// enqueue keeps only the latest pending list.
func (w *FavoritesWarmer) enqueue(ids []string) {
	for {
		select {
		case w.trigger <- ids:
			return
		default:
		}
		select {
		case <-w.trigger:
		default:
		}
	}
}

// warm counts the run only after the requests are queued.
func (w *FavoritesWarmer) warm(ids []string) {
	if len(ids) > 0 {
		w.logger.Debug().Int("favorites", len(ids)).Msg("requesting favorite reports")
		w.requester.GetReportsForSpots(ids)
	}

	w.mu.Lock()
	w.stats.Runs++
	w.stats.SpotsRequested += int64(len(ids))
	w.stats.LastRunAt = time.Now()
	w.mu.Unlock()
}

// Stats returns a copy of the current counters.
func (w *FavoritesWarmer) Stats() WarmerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
