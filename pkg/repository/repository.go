// Package repository holds the current set of parsed tracks and reconciles
// new parse results into it.
//
// A Repository has a single owner (the UI event loop) and does no locking.
package repository

import (
	"cmp"
	"slices"

	"github.com/vanderheijden86/conductor-dashboard/pkg/metrics"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// Repository maps track IDs to the latest parse of each track.
type Repository struct {
	tracks  map[model.TrackID]model.Track
	version uint64
}

// New returns an empty repository.
func New() *Repository {
	return &Repository{tracks: make(map[model.TrackID]model.Track)}
}

// Merge applies a batch of parsed tracks and removals. A track whose ID is
// already present replaces the old value in place; within one call the
// last occurrence of an ID wins. An ID both updated and removed in the same
// call is removed.
func (r *Repository) Merge(tracks []model.Track, removed []model.TrackID) Diff {
	defer metrics.Timer(metrics.RepositoryMerge)()

	var d Diff
	gone := make(map[model.TrackID]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
	}

	latest := make(map[model.TrackID]model.Track, len(tracks))
	for _, t := range tracks {
		if !gone[t.ID] {
			latest[t.ID] = t
		}
	}

	for id, t := range latest {
		old, ok := r.tracks[id]
		switch {
		case !ok:
			d.Added = append(d.Added, id)
		case !old.Equal(t):
			d.Updated = append(d.Updated, id)
			if old.Status != t.Status {
				d.StatusChanges = append(d.StatusChanges, StatusChange{ID: id, From: old.Status, To: t.Status})
			}
		default:
			d.Unchanged++
			continue
		}
		r.tracks[id] = t
	}

	for id := range gone {
		if _, ok := r.tracks[id]; ok {
			delete(r.tracks, id)
			d.Removed = append(d.Removed, id)
		}
	}

	slices.Sort(d.Added)
	slices.Sort(d.Updated)
	slices.Sort(d.Removed)
	slices.SortFunc(d.StatusChanges, func(a, b StatusChange) int {
		return cmp.Compare(a.ID, b.ID)
	})
	if !d.Empty() {
		r.version++
	}
	return d
}

// Replace makes the repository hold exactly tracks, removing every ID not in
// the new set.
func (r *Repository) Replace(tracks []model.Track) Diff {
	keep := make(map[model.TrackID]bool, len(tracks))
	for _, t := range tracks {
		keep[t.ID] = true
	}
	var removed []model.TrackID
	for id := range r.tracks {
		if !keep[id] {
			removed = append(removed, id)
		}
	}
	return r.Merge(tracks, removed)
}

// All returns every track sorted by ID.
func (r *Repository) All() []model.Track {
	out := make([]model.Track, 0, len(r.tracks))
	for _, t := range r.tracks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b model.Track) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// IDs returns every track ID, sorted.
func (r *Repository) IDs() []model.TrackID {
	ids := make([]model.TrackID, 0, len(r.tracks))
	for id := range r.tracks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Get returns the track with the given ID.
func (r *Repository) Get(id model.TrackID) (model.Track, bool) {
	t, ok := r.tracks[id]
	return t, ok
}

// Len returns the number of tracks.
func (r *Repository) Len() int { return len(r.tracks) }

// Version increases every time a merge changes something.
func (r *Repository) Version() uint64 { return r.version }
