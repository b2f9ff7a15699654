// Package settings persists the small amount of user state that outlives a
// session: the favorite spot list and whether live data is used.
package settings

import (
	"encoding/json"
	"errors"
	"time"
)

// Keys under which settings are stored. Values are JSON.
const (
	KeyUseRealAPI    = "useRealAPI"
	KeyFavoriteSpots = "favoriteSpots"
)

// ErrNotFound is returned when a setting has never been written.
var ErrNotFound = errors.New("setting not found")

// Entry is one stored setting.
type Entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Settings is the decoded view of every known key.
type Settings struct {
	UseRealAPI    bool     `json:"useRealAPI"`
	FavoriteSpots []string `json:"favoriteSpots"`
}

// DemoMode reports whether the offline dataset should be served.
func (s Settings) DemoMode() bool {
	return !s.UseRealAPI
}

// Defaults returns the settings used for keys that were never written.
func Defaults() Settings {
	return Settings{
		UseRealAPI:    true,
		FavoriteSpots: []string{},
	}
}
