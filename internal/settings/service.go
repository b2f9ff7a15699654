package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the settings service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
}

// Service reads and writes typed settings on top of a Repository. Writes are
// serialized so read-modify-write operations such as ToggleFavorite do not
// lose updates.
type Service struct {
	repo   Repository
	logger zerolog.Logger

	mu        sync.Mutex
	listeners []func(Settings)
}

// NewService creates a new settings service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}
}

// OnChange registers fn to be called with the new settings after every
// successful write.
func (s *Service) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Get returns every setting, falling back to defaults for missing or
// unreadable keys.
func (s *Service) Get(ctx context.Context) Settings {
	out := Defaults()

	entries, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load settings, using defaults")
		return out
	}

	if e, ok := entries[KeyUseRealAPI]; ok {
		s.decode(e, &out.UseRealAPI)
	}
	if e, ok := entries[KeyFavoriteSpots]; ok {
		var favs []string
		if s.decode(e, &favs) && favs != nil {
			out.FavoriteSpots = favs
		}
	}

	return out
}

// UseRealAPI reports whether live data is enabled. Defaults to true.
func (s *Service) UseRealAPI(ctx context.Context) bool {
	v := Defaults().UseRealAPI
	s.load(ctx, KeyUseRealAPI, &v)
	return v
}

// FavoriteSpots returns the favorite spot IDs in the order they were added.
func (s *Service) FavoriteSpots(ctx context.Context) []string {
	var favs []string
	if !s.load(ctx, KeyFavoriteSpots, &favs) || favs == nil {
		return []string{}
	}
	return favs
}

// SetDemoMode stores the demo-mode flag.
func (s *Service) SetDemoMode(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store(ctx, KeyUseRealAPI, !enabled); err != nil {
		return err
	}
	s.notifyLocked(ctx)
	return nil
}

// SetFavoriteSpots replaces the favorites list. Duplicates and empty IDs
// are dropped; the first occurrence keeps its position.
func (s *Service) SetFavoriteSpots(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store(ctx, KeyFavoriteSpots, dedupe(ids)); err != nil {
		return err
	}
	s.notifyLocked(ctx)
	return nil
}

// ToggleFavorite adds id to the favorites, or removes it if already present.
// It returns whether id is a favorite afterwards.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("empty spot id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	favs := s.FavoriteSpots(ctx)
	favorite := !slices.Contains(favs, id)
	if favorite {
		favs = append(favs, id)
	} else {
		favs = slices.DeleteFunc(favs, func(f string) bool { return f == id })
	}

	if err := s.store(ctx, KeyFavoriteSpots, favs); err != nil {
		return false, err
	}
	s.notifyLocked(ctx)
	return favorite, nil
}

func (s *Service) load(ctx context.Context, key string, v any) bool {
	e, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to get setting from repository")
		}
		return false
	}
	return s.decode(e, v)
}

func (s *Service) decode(e *Entry, v any) bool {
	if err := json.Unmarshal(e.Value, v); err != nil {
		s.logger.Warn().Err(err).Str("key", e.Key).Msg("ignoring malformed setting")
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.repo.Set(ctx, &Entry{Key: key, Value: value, UpdatedAt: time.Now()}); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

func (s *Service) notifyLocked(ctx context.Context) {
	if len(s.listeners) == 0 {
		return
	}
	current := s.Get(ctx)
	for _, fn := range s.listeners {
		fn(current)
	}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
