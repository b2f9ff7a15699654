package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of one upstream provider.
type ProviderHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string

	// StateChangedAt is when the breaker last moved between states.
	StateChangedAt *time.Time

	// Trips counts how often the breaker has opened since start-up.
	Trips int
}

// IsHealthy returns true if the provider is considered healthy.
func (h *ProviderHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true if the provider is in a degraded state (half-open).
func (h *ProviderHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy returns true if the provider is unhealthy (circuit open).
func (h *ProviderHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Status collapses the circuit state into healthy, degraded or unhealthy.
func (h *ProviderHealth) Status() string {
	switch {
	case h.IsHealthy():
		return "healthy"
	case h.IsDegraded():
		return "degraded"
	default:
		return "unhealthy"
	}
}

// Registry tracks the upstream clients and what happened to them recently.
//
// Breakers report transitions while holding their own lock, so the registry
// never reads breaker state while holding r.mu.
type Registry struct {
	mu        sync.Mutex
	providers map[string]*providerRecord
}

type providerRecord struct {
	client         *Client
	lastSuccessAt  *time.Time
	lastFailureAt  *time.Time
	lastError      string
	stateChangedAt *time.Time
	trips          int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*providerRecord),
	}
}

// Register adds a client under name, replacing any earlier one.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &providerRecord{client: client}
}

// RecordSuccess stamps the last successful call for name.
func (r *Registry) RecordSuccess(name string) {
	r.update(name, func(p *providerRecord, now time.Time) {
		p.lastSuccessAt = &now
	})
}

// RecordFailure stamps the last failed call for name and keeps its error.
func (r *Registry) RecordFailure(name string, err error) {
	r.update(name, func(p *providerRecord, now time.Time) {
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	})
}

// RecordStateChange stamps a breaker transition for name and counts trips.
func (r *Registry) RecordStateChange(name string, to gobreaker.State) {
	r.update(name, func(p *providerRecord, now time.Time) {
		p.stateChangedAt = &now
		if to == gobreaker.StateOpen {
			p.trips++
		}
	})
}

func (r *Registry) update(name string, fn func(p *providerRecord, now time.Time)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		fn(p, time.Now())
	}
}

// GetHealth returns the health of name, or nil if it is not registered.
func (r *Registry) GetHealth(name string) *ProviderHealth {
	r.mu.Lock()
	p, ok := r.providers[name]
	var rec providerRecord
	if ok {
		rec = *p
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return rec.health(name)
}

// GetAllHealth returns the health of every provider, ordered by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	r.mu.Lock()
	names := make([]string, 0, len(r.providers))
	recs := make(map[string]providerRecord, len(r.providers))
	for name, p := range r.providers {
		names = append(names, name)
		recs[name] = *p
	}
	r.mu.Unlock()

	slices.SortFunc(names, strings.Compare)
	out := make([]*ProviderHealth, 0, len(names))
	for _, name := range names {
		rec := recs[name]
		out = append(out, rec.health(name))
	}
	return out
}

// health reads the breaker, so it must run without r.mu held.
func (p *providerRecord) health(name string) *ProviderHealth {
	return &ProviderHealth{
		Name:           name,
		CircuitState:   p.client.CircuitBreakerState(),
		Counts:         p.client.CircuitBreakerCounts(),
		LastSuccessAt:  p.lastSuccessAt,
		LastFailureAt:  p.lastFailureAt,
		LastError:      p.lastError,
		StateChangedAt: p.stateChangedAt,
		Trips:          p.trips,
	}
}
