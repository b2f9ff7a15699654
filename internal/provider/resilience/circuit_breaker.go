// Package resilience wraps upstream HTTP calls with a circuit breaker and
// bounded retries, and keeps per-provider health for the ops endpoint.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Breaker defaults. Surfline answers slowly when it is struggling, so the
// breaker opens on a failure ratio over a short rolling window rather than on
// a run of consecutive errors.
const (
	DefaultBreakerMinRequests  = 5
	DefaultBreakerFailureRatio = 0.5
	DefaultBreakerOpenFor      = 30 * time.Second
	DefaultBreakerWindow       = 2 * time.Minute
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is how many probes are let through while half-open.
	MaxRequests uint32

	// Interval is the rolling window after which closed-state counts reset.
	// Zero keeps counting forever.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// ReadyToTrip overrides the failure-ratio rule when set.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange runs after the transition has been logged and recorded.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker settings used for every
// upstream provider.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Interval:    DefaultBreakerWindow,
		Timeout:     DefaultBreakerOpenFor,
		ReadyToTrip: TripOnFailureRatio(DefaultBreakerMinRequests, DefaultBreakerFailureRatio),
	}
}

// TripOnFailureRatio opens the breaker once at least minRequests have been
// seen in the window and ratio of them failed.
func TripOnFailureRatio(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 || counts.Requests < minRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

// newCircuitBreaker builds the breaker for the named provider. Every
// transition is logged and, when a registry is given, recorded against the
// provider.
func newCircuitBreaker[T any](provider string, cfg CircuitBreakerConfig, logger zerolog.Logger, registry *Registry) *gobreaker.CircuitBreaker[T] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = TripOnFailureRatio(DefaultBreakerMinRequests, DefaultBreakerFailureRatio)
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logStateChange(logger, provider, from, to)
			if registry != nil {
				registry.RecordStateChange(provider, to)
			}
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	})
}

// logStateChange warns when a provider is cut off and reports recovery at info.
func logStateChange(logger zerolog.Logger, provider string, from, to gobreaker.State) {
	event := logger.Info()
	if to == gobreaker.StateOpen {
		event = logger.Warn()
	}
	event.
		Str("provider", provider).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("circuit breaker state changed")
}
