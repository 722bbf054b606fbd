// Package loader reads a conductor directory from disk: it resolves the
// layout, parses the tracks.md index and builds tracks in parallel.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/conductor-dashboard/pkg/debug"
	"github.com/vanderheijden86/conductor-dashboard/pkg/metrics"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/parser"
)

// DirEnvVar overrides the conductor directory when no flag is given.
const DirEnvVar = "CONDUCTOR_DIR"

// DefaultDir is used when neither the flag, the config nor the environment
// names a directory.
const DefaultDir = "./conductor"

// maxParallel bounds concurrent track parses (file descriptors, memory).
const maxParallel = 16

// Setup errors. Both are fatal before the UI starts.
var (
	ErrConductorDirMissing = errors.New("conductor directory not found")
	ErrConductorDirAccess  = errors.New("conductor directory cannot be read")
)

// ResolveDir picks the conductor directory: an explicit value wins, then
// CONDUCTOR_DIR, then DefaultDir. The result is absolute.
func ResolveDir(dir string) (string, error) {
	if dir == "" {
		dir = os.Getenv(DirEnvVar)
	}
	if dir == "" {
		dir = DefaultDir
	}
	if strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[2:])
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve conductor directory: %w", err)
	}
	return abs, nil
}

// Source reads tracks from one conductor directory. It is not safe for
// concurrent use except for Parse, which only reads.
type Source struct {
	root   string
	layout parser.Layout
	reader *parser.Reader
}

// Open checks that root is a readable directory and reads its index.
func Open(root string) (*Source, error) {
	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s: %w", root, ErrConductorDirMissing)
	case err != nil:
		return nil, fmt.Errorf("%s: %w: %v", root, ErrConductorDirAccess, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%s is not a directory: %w", root, ErrConductorDirMissing)
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", root, ErrConductorDirAccess, err)
	}

	s := &Source{root: root}
	s.Refresh()
	return s, nil
}

// Root returns the conductor directory.
func (s *Source) Root() string { return s.root }

// Layout returns the layout resolved by the last Refresh.
func (s *Source) Layout() parser.Layout { return s.layout }

// Refresh re-resolves the layout and re-reads tracks.md. A missing or
// unreadable index just leaves the entries empty.
func (s *Source) Refresh() {
	layout := parser.ResolveLayout(s.root)
	if s.reader == nil || layout != s.layout {
		s.layout = layout
		s.reader = parser.NewReader(os.DirFS(layout.TracksDir), layout.TracksDir)
	}
	s.reader.SetIndex(s.readIndex())
}

func (s *Source) readIndex() []parser.IndexEntry {
	data, err := os.ReadFile(filepath.Join(s.root, parser.IndexFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			debug.Warn("reading %s: %v", parser.IndexFile, err)
		}
		return nil
	}
	entries := parser.ParseIndex(data)
	debug.Log("index: %d entries", len(entries))
	return entries
}

// ScanIDs lists the track directories currently on disk, sorted.
func (s *Source) ScanIDs() ([]model.TrackID, error) {
	names, err := s.layout.ListTrackDirs()
	if err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	ids := make([]model.TrackID, len(names))
	for i, n := range names {
		ids[i] = model.TrackID(n)
	}
	slices.Sort(ids)
	return ids, nil
}

// Parse reads one track. It returns an error wrapping parser.ErrTrackGone
// when the directory no longer exists or, in the loose layout, no longer
// looks like a track.
func (s *Source) Parse(id model.TrackID) (model.Track, error) {
	defer metrics.Timer(metrics.ParseTrack)()
	if !s.layout.IsTrackDir(string(id)) {
		return model.Track{}, fmt.Errorf("%s: %w", id, parser.ErrTrackGone)
	}
	return s.reader.Parse(id)
}

// LoadAll parses every track in parallel. Tracks whose directory vanished
// mid-scan are skipped; other read errors are logged and the track is
// skipped too, so one bad directory never fails the whole load.
func (s *Source) LoadAll(ctx context.Context) ([]model.Track, error) {
	defer metrics.Timer(metrics.InitialScan)()
	defer debug.LogEnterExit("loader.LoadAll")()

	ids, err := s.ScanIDs()
	if err != nil {
		return nil, err
	}

	results := make([]*model.Track, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := s.Parse(id)
			if err != nil {
				if !errors.Is(err, parser.ErrTrackGone) {
					debug.Warn("parse %s: %v", id, err)
				}
				return nil
			}
			results[i] = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading tracks: %w", err)
	}

	tracks := make([]model.Track, 0, len(results))
	for _, t := range results {
		if t != nil {
			tracks = append(tracks, *t)
		}
	}
	debug.Log("loaded %d tracks from %s", len(tracks), s.root)
	return tracks, nil
}

// LoadTracks opens root and loads every track. It is the one-shot entry
// point used by the non-interactive commands.
func LoadTracks(ctx context.Context, root string) ([]model.Track, error) {
	s, err := Open(root)
	if err != nil {
		return nil, err
	}
	return s.LoadAll(ctx)
}
