package parser

import (
	"os"
	"path/filepath"
	"strings"
)

// TracksDirName is the directory holding one subdirectory per track.
const TracksDirName = "tracks"

// Layout describes where tracks live under a conductor directory.
type Layout struct {
	Root string
	// TracksDir is Root/tracks, or Root itself for the loose layout where
	// track directories sit directly under the root.
	TracksDir string
	Nested    bool
}

// ResolveLayout inspects root and picks the nested layout when root/tracks
// exists.
func ResolveLayout(root string) Layout {
	tracks := filepath.Join(root, TracksDirName)
	if fi, err := os.Stat(tracks); err == nil && fi.IsDir() {
		return Layout{Root: root, TracksDir: tracks, Nested: true}
	}
	return Layout{Root: root, TracksDir: root}
}

// IsTrackFile reports whether name is one of the files read from a track
// directory.
func IsTrackFile(name string) bool {
	for _, f := range TrackFiles {
		if f == name {
			return true
		}
	}
	return false
}

// Hidden reports whether a directory entry should be skipped.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// ListTrackDirs returns the names of the track directories in the layout.
// In the loose layout only directories holding a plan.md or spec.md count.
func (l Layout) ListTrackDirs() ([]string, error) {
	entries, err := os.ReadDir(l.TracksDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || Hidden(e.Name()) {
			continue
		}
		if !l.Nested && !l.IsTrackDir(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// IsTrackDir reports whether the directory name under TracksDir is a track.
// Every directory counts in the nested layout.
func (l Layout) IsTrackDir(name string) bool {
	if l.Nested {
		return true
	}
	for _, f := range []string{PlanFile, SpecFile} {
		if _, err := os.Stat(filepath.Join(l.TracksDir, name, f)); err == nil {
			return true
		}
	}
	return false
}
