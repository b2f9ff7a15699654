// Package handler provides HTTP handlers for the swellmap API.
package handler

import (
	"net/http"
	"time"

	"github.com/swellmap/swellmap/internal/api/models"
	"github.com/swellmap/swellmap/internal/api/response"
	"github.com/swellmap/swellmap/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health. The service itself is live if it
// can answer; an open provider circuit only degrades the status.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
		Providers: []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, ph := range h.registry.GetAllHealth() {
			ps := providerStatus(ph)
			if ps.Status != models.HealthStatusOK {
				health.Status = models.HealthStatusDegraded
			}
			health.Providers = append(health.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            ph.Name,
		CircuitState:        ph.CircuitState.String(),
		ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
		Trips:               ph.Trips,
	}

	switch {
	case ph.IsHealthy():
		ps.Status = models.HealthStatusOK
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	default:
		ps.Status = models.HealthStatusFail
	}

	if ph.LastSuccessAt != nil {
		ps.LastSuccessAt = models.NewTimestamp(*ph.LastSuccessAt)
	}
	if ph.LastFailureAt != nil {
		ps.LastFailureAt = models.NewTimestamp(*ph.LastFailureAt)
	}
	if ph.StateChangedAt != nil {
		ps.StateChangedAt = models.NewTimestamp(*ph.StateChangedAt)
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}

	return ps
}
