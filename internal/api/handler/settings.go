package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swellmap/swellmap/internal/api/models"
	"github.com/swellmap/swellmap/internal/api/response"
	"github.com/swellmap/swellmap/internal/settings"
)

// SettingsStore is the part of the settings service the endpoints use.
type SettingsStore interface {
	Get(ctx context.Context) settings.Settings
	FavoriteSpots(ctx context.Context) []string
	SetDemoMode(ctx context.Context, enabled bool) error
	SetFavoriteSpots(ctx context.Context, ids []string) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
}

// SettingsHandler handles settings endpoints.
type SettingsHandler struct {
	settings SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: store}
}

// GetSettings handles GET /v1/settings.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.settings.Get(r.Context()))
}

// SetDemoMode handles PUT /v1/settings/demo-mode.
func (h *SettingsHandler) SetDemoMode(w http.ResponseWriter, r *http.Request) {
	var req models.DemoModeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		return
	}
	if req.Enabled == nil {
		response.BadRequest(w, r, "enabled is required", []models.FieldError{
			{Field: "enabled", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	if err := h.settings.SetDemoMode(r.Context(), *req.Enabled); err != nil {
		response.InternalError(w, r, "failed to save demo mode")
		return
	}

	response.JSON(w, r, http.StatusOK, h.settings.Get(r.Context()))
}

// ListFavorites handles GET /v1/settings/favorites.
func (h *SettingsHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.FavoritesResponse{SpotIDs: h.settings.FavoriteSpots(r.Context())})
}

// SetFavorites handles PUT /v1/settings/favorites.
func (h *SettingsHandler) SetFavorites(w http.ResponseWriter, r *http.Request) {
	var req models.FavoritesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		return
	}

	if err := h.settings.SetFavoriteSpots(r.Context(), req.SpotIDs); err != nil {
		response.InternalError(w, r, "failed to save favorites")
		return
	}

	response.JSON(w, r, http.StatusOK, models.FavoritesResponse{SpotIDs: h.settings.FavoriteSpots(r.Context())})
}

// ToggleFavorite handles POST /v1/settings/favorites/{spotId}:toggle.
func (h *SettingsHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "spotId"))
	if id == "" {
		response.BadRequest(w, r, "spotId is required", nil)
		return
	}

	favorite, err := h.settings.ToggleFavorite(r.Context(), id)
	if err != nil {
		response.InternalError(w, r, "failed to save favorites")
		return
	}

	response.JSON(w, r, http.StatusOK, models.FavoriteToggled{SpotID: id, Favorite: favorite})
}
