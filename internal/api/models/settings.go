package models

// DemoModeRequest is the body of PUT /v1/settings/demo-mode.
type DemoModeRequest struct {
	Enabled *bool `json:"enabled"`
}

// FavoritesRequest is the body of PUT /v1/settings/favorites.
type FavoritesRequest struct {
	SpotIDs []string `json:"spotIds"`
}

// FavoritesResponse lists the favorite spots in the order they were added.
type FavoritesResponse struct {
	SpotIDs []string `json:"spotIds"`
}

// FavoriteToggled is the result of toggling one spot.
type FavoriteToggled struct {
	SpotID   string `json:"spotId"`
	Favorite bool   `json:"favorite"`
}
