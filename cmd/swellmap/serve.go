package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/swellmap/swellmap/internal/api"
	"github.com/swellmap/swellmap/internal/api/middleware"
	"github.com/swellmap/swellmap/internal/database"
	"github.com/swellmap/swellmap/internal/news"
	"github.com/swellmap/swellmap/internal/provider/resilience"
	"github.com/swellmap/swellmap/internal/settings"
	"github.com/swellmap/swellmap/internal/spot/surfline"
	"github.com/swellmap/swellmap/internal/spotsync"
	"github.com/swellmap/swellmap/internal/telemetry"
	"github.com/swellmap/swellmap/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync engine and the HTTP API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting swellmap")

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		Insecure:       !cfg.IsProduction(),
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("initialize http metrics: %w", err)
	}
	syncMetrics, err := spotsync.NewMetrics()
	if err != nil {
		return fmt.Errorf("initialize sync metrics: %w", err)
	}

	repo, closeRepo, err := openSettings(ctx, cfg.Database, cfg.SettingsPath)
	if err != nil {
		return err
	}
	defer closeRepo()

	settingsSvc := settings.NewService(settings.ServiceConfig{
		Repository: repo,
		Logger:     log,
	})
	if cfg.DemoMode != nil {
		if err := settingsSvc.SetDemoMode(ctx, *cfg.DemoMode); err != nil {
			return fmt.Errorf("apply DEMO_MODE: %w", err)
		}
	}
	demo := settingsSvc.Get(ctx).DemoMode()

	registry := resilience.NewRegistry()
	source := newSurflineClient(registry)
	engine := spotsync.NewEngine(spotsync.Config{
		Source:   source,
		DemoMode: demo,
		Metrics:  syncMetrics,
		Logger:   log,
	})

	newsCfg := resilience.DefaultClientConfig(news.ProviderName)
	newsCfg.Timeout = 15 * time.Second
	newsCfg.Registry = registry
	newsCfg.Logger = log
	feed := news.NewService(news.ServiceConfig{
		Live: news.NewClient(news.ClientConfig{
			URL:        cfg.NewsURL,
			Geotarget:  cfg.NewsGeotarget,
			HTTPClient: resilience.NewClient(newsCfg),
		}),
		DemoMode: demo,
		Logger:   log,
	})

	settingsSvc.OnChange(func(s settings.Settings) {
		engine.SetDemoMode(s.DemoMode())
		feed.SetDemoMode(s.DemoMode())
	})

	warmer := worker.NewFavoritesWarmer(worker.FavoritesWarmerConfig{
		Settings:  settingsSvc,
		Requester: engine,
		Logger:    log,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        httpMetrics,
		RequireTLS:     cfg.RequireTLS,
		AllowedOrigins: cfg.AllowedOrigins,
		Registry:       registry,
		Sync:           engine,
		Settings:       settingsSvc,
		News:           feed,
		Warmer:         warmer,
	})

	// No WriteTimeout: the spot stream holds connections open.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		return warmer.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Bool("demo_mode", demo).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}

func newSurflineClient(registry *resilience.Registry) *surfline.Client {
	hc := resilience.DefaultClientConfig(surfline.ProviderName)
	hc.MaxRetries = 0
	hc.Registry = registry
	hc.Logger = log

	return surfline.NewClient(surfline.ClientConfig{
		BaseURL:          cfg.SurflineBaseURL,
		HTTPClient:       resilience.NewClient(hc),
		RateLimitRetries: cfg.RateLimitRetries,
		RateLimitDelay:   cfg.RateLimitDelay,
		Logger:           log,
	})
}

// openSettings picks Postgres when a database is configured and the local
// bolt file otherwise.
func openSettings(ctx context.Context, dbCfg database.Config, boltPath string) (settings.Repository, func(), error) {
	if !dbCfg.Enabled() {
		repo, err := settings.NewBoltRepository(boltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open settings file: %w", err)
		}
		log.Info().Str("path", boltPath).Msg("using local settings store")
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close settings store")
			}
		}, nil
	}

	pool, err := database.Connect(ctx, dbCfg)
	if err != nil {
		return nil, nil, err
	}
	repo := settings.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate settings: %w", err)
	}
	log.Info().Str("host", dbCfg.Host).Str("database", dbCfg.Database).Msg("database connected")
	return repo, pool.Close, nil
}
