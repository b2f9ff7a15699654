package models

import "github.com/swellmap/swellmap/internal/spot"

// ReportsRequest is the body of POST /v1/spots:reports.
type ReportsRequest struct {
	SpotIDs []string `json:"spotIds"`
}

// SyncAccepted acknowledges an enqueue. The fetch happens in the background.
type SyncAccepted struct {
	QueuedReports []string `json:"queuedReports,omitempty"`
	QueuedRegions int      `json:"queuedRegions,omitempty"`
}

// SpotList is the body of GET /v1/spots and /v1/spots/featured.
type SpotList struct {
	Spots []spot.Spot `json:"spots"`
}

// SyncState is the body of GET /v1/sync/state.
type SyncState struct {
	DemoMode      bool          `json:"demoMode"`
	SpotCount     int           `json:"spotCount"`
	StoredReports []string      `json:"storedReports"`
	InFlight      []string      `json:"inFlightReports"`
	QueuedReports []string      `json:"queuedReports"`
	StoredRegions []spot.Region `json:"storedRegions"`
	QueuedRegions []spot.Region `json:"queuedRegions"`

	FavoritesWarmer *WarmerState `json:"favoritesWarmer,omitempty"`
}

// WarmerState reports the background job that requests favorite reports.
type WarmerState struct {
	Runs           int64      `json:"runs"`
	SpotsRequested int64      `json:"spotsRequested"`
	LastRunAt      *Timestamp `json:"lastRunAt,omitempty"`
}

// StreamEvent is one message on the spot stream. The first message on a
// connection has type "init" and carries the whole store.
type StreamEvent struct {
	Type    string      `json:"type"`
	SpotIDs []string    `json:"spotIds,omitempty"`
	Spots   []spot.Spot `json:"spots"`
	Time    Timestamp   `json:"time"`
}

// Stream event types.
const (
	StreamEventInit   = "init"
	StreamEventMerged = "merged"
	StreamEventReset  = "reset"
)
