// Package api provides the HTTP API for swellmap.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/swellmap/swellmap/internal/api/handler"
	"github.com/swellmap/swellmap/internal/api/middleware"
	"github.com/swellmap/swellmap/internal/api/models"
	"github.com/swellmap/swellmap/internal/api/response"
	"github.com/swellmap/swellmap/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// AllowedOrigins restricts browser access to the spot stream.
	AllowedOrigins []string

	Registry *resilience.Registry
	Sync     handler.SpotSync
	Settings handler.SettingsStore
	News     handler.NewsFeed

	// Warmer is optional; when set its counters appear in the sync state.
	Warmer handler.WarmerStats
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "swellmap-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind a proxy
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // Reject non-JSON bodies

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		traceID := middleware.GetRequestID(r.Context())
		response.Error(w, r, models.NewProblem(models.ProblemTypeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed, traceID))
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)
	spotsHandler := handler.NewSpotsHandler(cfg.Sync, cfg.Warmer)
	streamHandler := handler.NewStreamHandler(cfg.Sync, handler.StreamConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         cfg.Logger,
	})
	settingsHandler := handler.NewSettingsHandler(cfg.Settings)
	newsHandler := handler.NewNewsHandler(cfg.News)

	syncRateLimit := middleware.RateLimitByIP(middleware.SyncRateLimit)         // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 120 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ops/health", opsHandler.HealthCheck)

		// Endpoints that enqueue upstream fetches
		r.Group(func(r chi.Router) {
			r.Use(syncRateLimit)
			r.Post("/spots:region", spotsHandler.RequestRegion)
			r.Post("/spots:reports", spotsHandler.RequestReports)
			r.Post("/news:more", newsHandler.LoadMore)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)

			r.Route("/spots", func(r chi.Router) {
				r.Get("/", spotsHandler.ListSpots)
				r.Get("/featured", spotsHandler.FeaturedSpots)
				r.Get("/stream", streamHandler.Stream)
				r.Get("/{spotId}", spotsHandler.GetSpot)
			})

			r.Get("/sync/state", spotsHandler.SyncState)

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", settingsHandler.GetSettings)
				r.Put("/demo-mode", settingsHandler.SetDemoMode)
				r.Get("/favorites", settingsHandler.ListFavorites)
				r.Put("/favorites", settingsHandler.SetFavorites)
				r.Post("/favorites/{spotId}:toggle", settingsHandler.ToggleFavorite)
			})

			r.Get("/news", newsHandler.GetNews)
		})
	})

	return r
}
