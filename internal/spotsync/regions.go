package spotsync

import (
	"github.com/swellmap/swellmap/internal/spot"
)

type regionEntry struct {
	seq    uint64
	region spot.Region
}

// regionQueue is the pending region stack plus the regions already served.
// Entries carry a sequence number so the drain removes exactly the entry it
// fetched even when newer ones were pushed meanwhile.
type regionQueue struct {
	pending []regionEntry
	stored  []spot.Region
	nextSeq uint64
}

// covered reports whether a stored or pending region contains needed.
func (q *regionQueue) covered(needed spot.Region) bool {
	for _, r := range q.stored {
		if r.Contains(needed) {
			return true
		}
	}
	for _, e := range q.pending {
		if e.region.Contains(needed) {
			return true
		}
	}
	return false
}

func (q *regionQueue) push(r spot.Region) {
	q.nextSeq++
	q.pending = append(q.pending, regionEntry{seq: q.nextSeq, region: r})
}

// peek returns the most recently pushed entry.
func (q *regionQueue) peek() (regionEntry, bool) {
	if len(q.pending) == 0 {
		return regionEntry{}, false
	}
	return q.pending[len(q.pending)-1], true
}

func (q *regionQueue) remove(seq uint64) {
	for i, e := range q.pending {
		if e.seq == seq {
			q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
			return
		}
	}
}

func (q *regionQueue) markStored(r spot.Region) {
	q.stored = append(q.stored, r)
}

func (q *regionQueue) clearStored() {
	q.stored = nil
}

func (q *regionQueue) pendingRegions() []spot.Region {
	out := make([]spot.Region, len(q.pending))
	for i, e := range q.pending {
		out[i] = e.region
	}
	return out
}

func (q *regionQueue) storedRegions() []spot.Region {
	return append([]spot.Region(nil), q.stored...)
}
