package state

import (
	"cmp"
	"slices"
	"strings"

	"github.com/vanderheijden86/conductor-dashboard/pkg/metrics"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// VisibleTracks computes search(sort(filter(tracks))). It never modifies
// tracks and never duplicates or drops a track that passes both predicates.
func VisibleTracks(tracks []model.Track, filter FilterMode, sortMode SortMode, query string) []model.Track {
	defer metrics.Timer(metrics.VisibleRecompute)()
	return Search(Sort(Filter(tracks, filter), sortMode), query)
}

// Filter keeps the tracks whose status matches f, in order.
func Filter(tracks []model.Track, f FilterMode) []model.Track {
	out := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		if f.Matches(t.Status) {
			out = append(out, t)
		}
	}
	return out
}

// Sort returns a sorted copy. Ties are broken by ID so the order is total.
func Sort(tracks []model.Track, mode SortMode) []model.Track {
	out := slices.Clone(tracks)
	switch mode {
	case SortProgress:
		slices.SortStableFunc(out, func(a, b model.Track) int {
			if c := cmp.Compare(b.ProgressPercent, a.ProgressPercent); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	default:
		slices.SortStableFunc(out, func(a, b model.Track) int {
			if c := b.LastUpdated.Compare(a.LastUpdated); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}
	return out
}

// Search keeps tracks whose title or ID contains query, ignoring case.
// An empty query keeps everything.
func Search(tracks []model.Track, query string) []model.Track {
	q := strings.ToLower(query)
	if q == "" {
		return tracks
	}
	out := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(string(t.ID)), q) {
			out = append(out, t)
		}
	}
	return out
}
