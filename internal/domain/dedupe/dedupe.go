// Package dedupe tracks which (student, listing) pairs a batch run has
// already recomputed so duplicate queue items do not repeat the work.
package dedupe

import (
	"github.com/okian/matchengine/internal/domain/model"
)

// Deduper records seen pairs for one batch run. It is not safe for concurrent use.
type Deduper interface {
	// SeenAndRecord checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(key model.PairKey) bool

	// Unrecord forgets key so a failed recompute can be retried in the same run.
	Unrecord(key model.PairKey)

	// Size is the number of recorded pairs.
	Size() int
}

type pairDeduper struct {
	seen map[model.PairKey]struct{}
}

// NewPairDeduper creates a deduper for one run.
func NewPairDeduper() Deduper {
	return &pairDeduper{seen: make(map[model.PairKey]struct{})}
}

func (d *pairDeduper) SeenAndRecord(key model.PairKey) bool {
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *pairDeduper) Unrecord(key model.PairKey) {
	delete(d.seen, key)
}

func (d *pairDeduper) Size() int {
	return len(d.seen)
}
