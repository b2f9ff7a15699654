// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/swellmap/swellmap/internal/database"
	"github.com/swellmap/swellmap/internal/news"
	"github.com/swellmap/swellmap/internal/spot/surfline"
)

// Config is the full runtime configuration for swellmap.
type Config struct {
	Env  string
	Port string

	SurflineBaseURL  string
	RateLimitRetries uint64
	RateLimitDelay   time.Duration

	NewsURL       string
	NewsGeotarget string

	// SettingsPath is the bolt file used when no database is configured.
	SettingsPath string
	Database     database.Config

	// DemoMode, when set, overrides the stored demo-mode setting at start-up.
	DemoMode *bool

	RequireTLS     bool
	AllowedOrigins []string

	OTelEnabled  bool
	OTLPEndpoint string

	ShutdownTimeout time.Duration
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads envFile (if it exists) into the process environment and then
// builds a Config from it. Variables already set in the environment win over
// the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		Env:             getEnvOrDefault("APP_ENV", "development"),
		Port:            getEnvOrDefault("PORT", getEnvOrDefault("APP_PORT", "8080")),
		SurflineBaseURL: getEnvOrDefault("SURFLINE_BASE_URL", surfline.DefaultBaseURL),
		NewsURL:         getEnvOrDefault("NEWS_URL", news.DefaultURL),
		NewsGeotarget:   getEnvOrDefault("NEWS_GEOTARGET", news.DefaultGeotarget),
		SettingsPath:    getEnvOrDefault("SETTINGS_DB", "swellmap.db"),
		OTLPEndpoint:    getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		AllowedOrigins:  splitList(os.Getenv("ALLOWED_ORIGINS")),
	}

	var err error
	cfg.RateLimitRetries, err = getEnvUint("SURFLINE_RATE_LIMIT_RETRIES", 3)
	collect(err)
	cfg.RateLimitDelay, err = getEnvDuration("SURFLINE_RATE_LIMIT_DELAY", time.Second)
	collect(err)
	cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.RequireTLS, err = getEnvBool("REQUIRE_TLS", false)
	collect(err)
	cfg.OTelEnabled, err = getEnvBool("OTEL_ENABLED", false)
	collect(err)

	if v := os.Getenv("DEMO_MODE"); v != "" {
		demo, perr := strconv.ParseBool(v)
		if perr != nil {
			collect(fmt.Errorf("DEMO_MODE: %w", perr))
		} else {
			cfg.DemoMode = &demo
		}
	}

	cfg.Database, err = databaseFromEnv()
	collect(err)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func databaseFromEnv() (database.Config, error) {
	var errs []error

	port, err := getEnvInt("DB_PORT", 5432)
	errs = append(errs, err)
	maxOpen, err := getEnvInt("DB_MAX_OPEN_CONNS", 10)
	errs = append(errs, err)
	maxIdle, err := getEnvInt("DB_MAX_IDLE_CONNS", 2)
	errs = append(errs, err)
	lifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	errs = append(errs, err)

	return database.Config{
		URL:             os.Getenv("DATABASE_URL"),
		Host:            os.Getenv("DB_HOST"),
		Port:            port,
		User:            getEnvOrDefault("DB_USER", "swellmap"),
		Password:        os.Getenv("DB_PASSWORD"),
		Database:        getEnvOrDefault("DB_NAME", "swellmap"),
		SSLMode:         getEnvOrDefault("DB_SSL_MODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: lifetime,
	}, errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvUint(key string, defaultValue uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
