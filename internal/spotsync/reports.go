package spotsync

import (
	"slices"
)

// reportQueue tracks every spot ID through pending, in-flight and stored.
// An ID is in at most one of pending and in-flight at a time.
type reportQueue struct {
	pending  []string
	inFlight map[string]struct{}
	stored   map[string]struct{}
}

func newReportQueue() *reportQueue {
	return &reportQueue{
		inFlight: map[string]struct{}{},
		stored:   map[string]struct{}{},
	}
}

// enqueue appends id unless it is already pending, in flight or stored.
func (q *reportQueue) enqueue(id string) bool {
	if _, ok := q.inFlight[id]; ok {
		return false
	}
	if _, ok := q.stored[id]; ok {
		return false
	}
	if slices.Contains(q.pending, id) {
		return false
	}
	q.pending = append(q.pending, id)
	return true
}

// take pops the most recently queued ID and marks it in flight.
func (q *reportQueue) take() (string, bool) {
	if len(q.pending) == 0 {
		return "", false
	}
	last := len(q.pending) - 1
	id := q.pending[last]
	q.pending = q.pending[:last]
	q.inFlight[id] = struct{}{}
	return id, true
}

// finish clears the in-flight mark and records success.
func (q *reportQueue) finish(id string, stored bool) {
	delete(q.inFlight, id)
	if stored {
		q.stored[id] = struct{}{}
	}
}

func (q *reportQueue) clearStored() {
	q.stored = map[string]struct{}{}
}

// busy reports whether a fetch is running.
func (q *reportQueue) busy() bool {
	return len(q.inFlight) > 0
}

// waiting reports whether IDs are queued but not yet picked up.
func (q *reportQueue) waiting() bool {
	return len(q.pending) > 0
}

func (q *reportQueue) pendingIDs() []string {
	return slices.Clone(q.pending)
}

func (q *reportQueue) inFlightIDs() []string {
	return sortedKeys(q.inFlight)
}

func (q *reportQueue) storedIDs() []string {
	return sortedKeys(q.stored)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
