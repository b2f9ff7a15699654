package settings

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepository is an in-memory implementation of Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryRepository creates a new in-memory settings repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves a single setting by key.
func (r *MemoryRepository) Get(_ context.Context, key string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEntry(e), nil
}

// GetAll retrieves every stored setting.
func (r *MemoryRepository) GetAll(_ context.Context) (map[string]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Entry, len(r.entries))
	for k, e := range r.entries {
		out[k] = cloneEntry(e)
	}
	return out, nil
}

// Set creates or updates a setting.
func (r *MemoryRepository) Set(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Key] = cloneEntry(entry)
	return nil
}

// Delete removes a setting by key.
func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
	return nil
}

func cloneEntry(e *Entry) *Entry {
	c := *e
	c.Value = slices.Clone(e.Value)
	return &c
}

var _ Repository = (*MemoryRepository)(nil)
