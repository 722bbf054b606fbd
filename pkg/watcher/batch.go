package watcher

import (
	"slices"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// Batch is one debounced set of changes. IDs are sorted and an ID appears in
// at most one of Changed and Removed.
type Batch struct {
	Changed []model.TrackID
	Removed []model.TrackID
	// IndexChanged is set when tracks.md changed; titles and attributes for
	// every track may be stale.
	IndexChanged bool
	// Full asks for a complete rescan, e.g. after the watcher fell back to
	// polling and may have missed events.
	Full bool
}

// Empty reports whether the batch carries nothing.
func (b Batch) Empty() bool {
	return len(b.Changed) == 0 && len(b.Removed) == 0 && !b.IndexChanged && !b.Full
}

// Merge folds a newer batch into b. For an ID present in both, the newer
// batch decides whether it was changed or removed.
func (b Batch) Merge(newer Batch) Batch {
	changed := make(map[model.TrackID]bool)
	for _, id := range b.Changed {
		changed[id] = true
	}
	for _, id := range b.Removed {
		changed[id] = false
	}
	for _, id := range newer.Changed {
		changed[id] = true
	}
	for _, id := range newer.Removed {
		changed[id] = false
	}
	out := Batch{
		IndexChanged: b.IndexChanged || newer.IndexChanged,
		Full:         b.Full || newer.Full,
	}
	for id, c := range changed {
		if c {
			out.Changed = append(out.Changed, id)
		} else {
			out.Removed = append(out.Removed, id)
		}
	}
	slices.Sort(out.Changed)
	slices.Sort(out.Removed)
	return out
}
