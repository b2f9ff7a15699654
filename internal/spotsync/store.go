package spotsync

import (
	"maps"
	"sync"

	"github.com/swellmap/swellmap/internal/spot"
)

// ChangeKind describes what happened to the store.
type ChangeKind string

const (
	// ChangeMerged means the listed spots were inserted or updated.
	ChangeMerged ChangeKind = "merged"

	// ChangeReset means the whole store was replaced.
	ChangeReset ChangeKind = "reset"
)

// Change is published after every committed store mutation.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	SpotIDs []string   `json:"spotIds,omitempty"`
}

// Store maps spot IDs to merged spots. Every write swaps in a fresh map, so
// a snapshot handed to a reader never changes underneath it.
type Store struct {
	mu    sync.RWMutex
	spots map[string]spot.Spot

	subMu   sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		spots: map[string]spot.Spot{},
		subs:  map[int]chan Change{},
	}
}

// Get returns the stored spot.
func (s *Store) Get(id string) (spot.Spot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spots[id]
	return sp, ok
}

// Snapshot returns the current contents. The map must not be modified.
func (s *Store) Snapshot() map[string]spot.Spot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spots
}

// Len returns the number of stored spots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spots)
}

// Merge applies each update to the existing spot, or to a placeholder when
// the ID is new, and returns the IDs that were written.
func (s *Store) Merge(updates []spot.Update) []string {
	if len(updates) == 0 {
		return nil
	}

	s.mu.Lock()
	next := maps.Clone(s.spots)
	ids := make([]string, 0, len(updates))
	for _, u := range updates {
		current, ok := next[u.ID]
		if !ok {
			current = spot.NewPlaceholder(u.ID)
		}
		next[u.ID] = current.Apply(u)
		ids = append(ids, u.ID)
	}
	s.spots = next
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeMerged, SpotIDs: ids})
	return ids
}

// Modify replaces an existing spot with fn's result. It reports false and
// writes nothing when the spot is not stored.
func (s *Store) Modify(id string, fn func(spot.Spot) spot.Spot) bool {
	s.mu.Lock()
	current, ok := s.spots[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	next := maps.Clone(s.spots)
	next[id] = fn(current)
	s.spots = next
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeMerged, SpotIDs: []string{id}})
	return true
}

// Replace swaps the whole contents for spots.
func (s *Store) Replace(spots map[string]spot.Spot) {
	next := maps.Clone(spots)
	if next == nil {
		next = map[string]spot.Spot{}
	}

	s.mu.Lock()
	s.spots = next
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeReset})
}

// Subscribe registers for change events. Events are dropped for a
// subscriber whose buffer is full. The returned func unsubscribes and closes
// the channel.
func (s *Store) Subscribe(buffer int) (<-chan Change, func()) {
	ch := make(chan Change, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
