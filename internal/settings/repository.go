package settings

import (
	"context"
)

// Repository defines the interface for settings storage.
type Repository interface {
	// Get retrieves a single setting by key.
	Get(ctx context.Context, key string) (*Entry, error)

	// GetAll retrieves every stored setting.
	GetAll(ctx context.Context) (map[string]*Entry, error)

	// Set creates or updates a setting.
	Set(ctx context.Context, entry *Entry) error

	// Delete removes a setting by key.
	Delete(ctx context.Context, key string) error
}
