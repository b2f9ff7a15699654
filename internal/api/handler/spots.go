package handler

import (
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swellmap/swellmap/internal/api/models"
	"github.com/swellmap/swellmap/internal/api/response"
	"github.com/swellmap/swellmap/internal/spot"
	"github.com/swellmap/swellmap/internal/spotsync"
	"github.com/swellmap/swellmap/internal/worker"
)

const (
	defaultFeaturedLimit = 10
	maxFeaturedLimit     = 100
	maxReportBatch       = 100
)

// SpotSync is the part of the sync engine the spot endpoints use.
type SpotSync interface {
	GetSpotsForRegion(v spot.Viewport)
	GetReportsForSpots(ids []string)
	GetSpot(id string) spot.Spot
	Spots() map[string]spot.Spot
	StoredReports() []string
	InFlightReports() []string
	QueuedReports() []string
	StoredRegions() []spot.Region
	QueuedRegions() []spot.Region
	DemoMode() bool
	Subscribe(buffer int) (<-chan spotsync.Change, func())
}

// SpotsHandler handles spot and sync endpoints.
type SpotsHandler struct {
	sync   SpotSync
	warmer WarmerStats
}

// WarmerStats exposes the favorites warmer counters. worker.FavoritesWarmer
// satisfies it.
type WarmerStats interface {
	Stats() worker.WarmerStats
}

// NewSpotsHandler creates a new SpotsHandler. warmer may be nil.
func NewSpotsHandler(sync SpotSync, warmer WarmerStats) *SpotsHandler {
	return &SpotsHandler{sync: sync, warmer: warmer}
}

// RequestRegion handles POST /v1/spots:region. The body is the visible map
// viewport; spots for it are fetched in the background.
func (h *SpotsHandler) RequestRegion(w http.ResponseWriter, r *http.Request) {
	var v spot.Viewport
	if err := decodeJSON(w, r, &v); err != nil {
		response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		return
	}
	if errs := validateViewport(v); len(errs) > 0 {
		response.BadRequest(w, r, "invalid viewport", errs)
		return
	}

	h.sync.GetSpotsForRegion(v)

	response.Accepted(w, r, models.SyncAccepted{QueuedRegions: len(h.sync.QueuedRegions())})
}

func validateViewport(v spot.Viewport) []models.FieldError {
	var errs []models.FieldError
	check := func(field string, value, lo, hi float64) {
		if math.IsNaN(value) || value < lo || value > hi {
			errs = append(errs, models.FieldError{
				Field:   field,
				Message: "must be between " + strconv.FormatFloat(lo, 'f', -1, 64) + " and " + strconv.FormatFloat(hi, 'f', -1, 64),
				Code:    "OUT_OF_RANGE",
			})
		}
	}

	check("latitude", v.Latitude, -90, 90)
	check("longitude", v.Longitude, -180, 180)
	check("latitudeDelta", v.LatitudeDelta, 0, 180)
	check("longitudeDelta", v.LongitudeDelta, 0, 360)

	return errs
}

// RequestReports handles POST /v1/spots:reports. Spots already stored or
// being fetched are skipped by the engine.
func (h *SpotsHandler) RequestReports(w http.ResponseWriter, r *http.Request) {
	var req models.ReportsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		return
	}

	ids := make([]string, 0, len(req.SpotIDs))
	for _, id := range req.SpotIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		response.BadRequest(w, r, "spotIds is required", []models.FieldError{
			{Field: "spotIds", Message: "at least one spot id is required", Code: "REQUIRED"},
		})
		return
	}
	if len(ids) > maxReportBatch {
		response.BadRequest(w, r, "too many spot ids", []models.FieldError{
			{Field: "spotIds", Message: "at most " + strconv.Itoa(maxReportBatch) + " spot ids per request", Code: "TOO_LONG"},
		})
		return
	}

	h.sync.GetReportsForSpots(ids)

	response.Accepted(w, r, models.SyncAccepted{QueuedReports: h.sync.QueuedReports()})
}

// ListSpots handles GET /v1/spots. With ?ids=a,b the listed spots are
// returned in that order, unknown ones as placeholders.
func (h *SpotsHandler) ListSpots(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("ids"); raw != "" {
		var spots []spot.Spot
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				spots = append(spots, h.sync.GetSpot(id))
			}
		}
		response.JSON(w, r, http.StatusOK, models.SpotList{Spots: nonNil(spots)})
		return
	}

	response.JSON(w, r, http.StatusOK, models.SpotList{Spots: sortedSpots(h.sync.Spots())})
}

// FeaturedSpots handles GET /v1/spots/featured.
func (h *SpotsHandler) FeaturedSpots(w http.ResponseWriter, r *http.Request) {
	limit := defaultFeaturedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFeaturedLimit {
			response.BadRequest(w, r, "invalid limit", []models.FieldError{
				{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(maxFeaturedLimit), Code: "OUT_OF_RANGE"},
			})
			return
		}
		limit = n
	}

	response.JSON(w, r, http.StatusOK, models.SpotList{Spots: nonNil(spot.Featured(h.sync.Spots(), limit))})
}

// GetSpot handles GET /v1/spots/{spotId}. It never triggers a fetch; an
// unknown id yields a placeholder.
func (h *SpotsHandler) GetSpot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "spotId")
	if id == "" {
		response.BadRequest(w, r, "spotId is required", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, h.sync.GetSpot(id))
}

// SyncState handles GET /v1/sync/state.
func (h *SpotsHandler) SyncState(w http.ResponseWriter, r *http.Request) {
	state := models.SyncState{
		DemoMode:      h.sync.DemoMode(),
		SpotCount:     len(h.sync.Spots()),
		StoredReports: nonNil(h.sync.StoredReports()),
		InFlight:      nonNil(h.sync.InFlightReports()),
		QueuedReports: nonNil(h.sync.QueuedReports()),
		StoredRegions: nonNil(h.sync.StoredRegions()),
		QueuedRegions: nonNil(h.sync.QueuedRegions()),
	}
	if h.warmer != nil {
		stats := h.warmer.Stats()
		state.FavoritesWarmer = &models.WarmerState{
			Runs:           stats.Runs,
			SpotsRequested: stats.SpotsRequested,
			LastRunAt:      models.NewTimestamp(stats.LastRunAt),
		}
	}
	response.JSON(w, r, http.StatusOK, state)
}

func sortedSpots(m map[string]spot.Spot) []spot.Spot {
	spots := make([]spot.Spot, 0, len(m))
	for _, s := range m {
		spots = append(spots, s)
	}
	slices.SortFunc(spots, func(a, b spot.Spot) int { return strings.Compare(a.ID, b.ID) })
	return spots
}

// nonNil keeps empty lists as [] rather than null in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
