package repository

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// Diff describes what a merge changed. ID lists are sorted.
type Diff struct {
	Added   []model.TrackID
	Updated []model.TrackID
	Removed []model.TrackID
	// StatusChanges lists updated tracks whose status moved.
	StatusChanges []StatusChange
	Unchanged     int
}

// StatusChange records a status transition for a single track.
type StatusChange struct {
	ID   model.TrackID `json:"id"`
	From model.Status  `json:"from"`
	To   model.Status  `json:"to"`
}

// Empty reports whether the merge changed nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Touched returns every id the merge added, updated or removed.
func (d Diff) Touched() []model.TrackID {
	out := make([]model.TrackID, 0, len(d.Added)+len(d.Updated)+len(d.Removed))
	out = append(out, d.Added...)
	out = append(out, d.Updated...)
	return append(out, d.Removed...)
}

// Summary returns a short human-readable description of the diff.
func (d Diff) Summary() string {
	if d.Empty() {
		return fmt.Sprintf("No changes (%d tracks)", d.Unchanged)
	}
	var parts []string
	if n := len(d.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := len(d.Updated); n > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", n))
	}
	if n := len(d.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	s := strings.Join(parts, ", ")
	if len(d.StatusChanges) > 0 && len(d.StatusChanges) <= 3 {
		var moves []string
		for _, c := range d.StatusChanges {
			moves = append(moves, fmt.Sprintf("%s: %s→%s", c.ID, c.From, c.To))
		}
		s += " (" + strings.Join(moves, "; ") + ")"
	}
	return s
}
