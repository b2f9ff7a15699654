package news

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the news service.
type ServiceConfig struct {
	Live     Fetcher
	Demo     Fetcher
	DemoMode bool
	Logger   zerolog.Logger
}

// Service accumulates pages of the feed. Only one page loads at a time and
// paging stops after the first short page.
type Service struct {
	live   Fetcher
	demo   Fetcher
	logger zerolog.Logger

	mu            sync.Mutex
	demoMode      bool
	posts         []Post
	offset        int
	loading       bool
	moreAvailable bool
	generation    uint64
}

// NewService creates a new news service.
func NewService(cfg ServiceConfig) *Service {
	demo := cfg.Demo
	if demo == nil {
		demo = DemoFetcher{}
	}

	return &Service{
		live:          cfg.Live,
		demo:          demo,
		logger:        cfg.Logger.With().Str("component", "news").Logger(),
		demoMode:      cfg.DemoMode,
		posts:         []Post{},
		moreAvailable: true,
	}
}

// Feed returns a copy of the loaded posts and paging state.
func (s *Service) Feed() Feed {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Feed{
		Posts:         append([]Post{}, s.posts...),
		Loading:       s.loading,
		MoreAvailable: s.moreAvailable,
		DemoMode:      s.demoMode,
	}
}

// LoadMore fetches the next page. It reports false without fetching when a
// load is already running or the feed is exhausted.
func (s *Service) LoadMore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.loading || !s.moreAvailable {
		s.mu.Unlock()
		return false, nil
	}
	s.loading = true
	offset := s.offset
	generation := s.generation
	fetcher := s.live
	if s.demoMode {
		fetcher = s.demo
	}
	s.mu.Unlock()

	posts, err := fetcher.Posts(ctx, offset, PostsPerPage)

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		// Reset while loading; the page belongs to the old feed.
		return false, nil
	}
	s.loading = false

	if err != nil {
		s.logger.Error().Err(err).Int("offset", offset).Msg("failed to fetch posts")
		return false, err
	}

	s.posts = append(s.posts, posts...)
	s.offset += PostsPerPage
	s.moreAvailable = len(posts) == PostsPerPage

	return true, nil
}

// SetDemoMode switches feeds. A change discards everything loaded so far.
func (s *Service) SetDemoMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.demoMode == enabled {
		return
	}
	s.demoMode = enabled
	s.generation++
	s.posts = []Post{}
	s.offset = 0
	s.loading = false
	s.moreAvailable = true
}
