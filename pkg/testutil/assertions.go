package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// AssertTrackCount verifies the expected number of tracks.
func AssertTrackCount(t *testing.T, tracks []model.Track, expected int) {
	t.Helper()
	if len(tracks) != expected {
		t.Errorf("expected %d tracks, got %d", expected, len(tracks))
	}
}

// AssertNoDuplicateIDs verifies all track IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, tracks []model.Track) {
	t.Helper()
	seen := make(map[model.TrackID]bool)
	for _, tr := range tracks {
		if seen[tr.ID] {
			t.Errorf("duplicate track ID: %s", tr.ID)
		}
		seen[tr.ID] = true
	}
}

// AssertStatusCounts verifies the number of tracks in each status.
func AssertStatusCounts(t *testing.T, tracks []model.Track, active, blocked, complete int) {
	t.Helper()
	counts := CountByStatus(tracks)
	if counts[model.StatusActive] != active {
		t.Errorf("expected %d active, got %d", active, counts[model.StatusActive])
	}
	if counts[model.StatusBlocked] != blocked {
		t.Errorf("expected %d blocked, got %d", blocked, counts[model.StatusBlocked])
	}
	if counts[model.StatusComplete] != complete {
		t.Errorf("expected %d complete, got %d", complete, counts[model.StatusComplete])
	}
}

// TempConductorDir creates a conductor directory with an empty tracks/
// subdirectory and returns its path.
func TempConductorDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "conductor")
	if err := os.MkdirAll(filepath.Join(dir, "tracks"), 0o755); err != nil {
		t.Fatalf("failed to create tracks dir: %v", err)
	}
	return dir
}

// WriteTrackFile writes one file into root/tracks/<id>/.
func WriteTrackFile(t *testing.T, root string, id model.TrackID, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, "tracks", string(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create track dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// WriteTracks writes a plan.md for every track and sets each directory's
// files to the track's LastUpdated time.
func WriteTracks(t *testing.T, root string, tracks []model.Track) {
	t.Helper()
	for _, tr := range tracks {
		path := WriteTrackFile(t, root, tr.ID, "plan.md", PlanMarkdown(tr))
		if !tr.LastUpdated.IsZero() {
			if err := os.Chtimes(path, tr.LastUpdated, tr.LastUpdated); err != nil {
				t.Fatalf("chtimes: %v", err)
			}
			if err := os.Chtimes(filepath.Dir(path), tr.LastUpdated, tr.LastUpdated); err != nil {
				t.Fatalf("chtimes: %v", err)
			}
		}
	}
}

// FindTrack finds a track by ID, or nil.
func FindTrack(tracks []model.Track, id model.TrackID) *model.Track {
	for i := range tracks {
		if tracks[i].ID == id {
			return &tracks[i]
		}
	}
	return nil
}

// CountByStatus counts tracks by status.
func CountByStatus(tracks []model.Track) map[model.Status]int {
	counts := make(map[model.Status]int)
	for _, tr := range tracks {
		counts[tr.Status]++
	}
	return counts
}

// GetIDs returns the IDs in order.
func GetIDs(tracks []model.Track) []model.TrackID {
	ids := make([]model.TrackID, len(tracks))
	for i, tr := range tracks {
		ids[i] = tr.ID
	}
	return ids
}
