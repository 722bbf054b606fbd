package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/vanderheijden86/conductor-dashboard/pkg/loader"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/parser"
	"github.com/vanderheijden86/conductor-dashboard/pkg/testutil"
)

func TestResolveDir(t *testing.T) {
	t.Setenv(loader.DirEnvVar, "")
	got, err := loader.ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(loader.DefaultDir)
	if got != want {
		t.Errorf("ResolveDir(\"\") = %s, want %s", got, want)
	}

	env := t.TempDir()
	t.Setenv(loader.DirEnvVar, env)
	if got, _ := loader.ResolveDir(""); got != env {
		t.Errorf("env override: got %s, want %s", got, env)
	}
	explicit := t.TempDir()
	if got, _ := loader.ResolveDir(explicit); got != explicit {
		t.Errorf("explicit dir should win over env: got %s", got)
	}
}

func TestOpen_MissingDir(t *testing.T) {
	_, err := loader.Open(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, loader.ErrConductorDirMissing) {
		t.Fatalf("expected ErrConductorDirMissing, got %v", err)
	}
}

func TestOpen_FileNotDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conductor")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.Open(path); !errors.Is(err, loader.ErrConductorDirMissing) {
		t.Fatalf("expected ErrConductorDirMissing, got %v", err)
	}
}

func TestLoadAll_RoundTrip(t *testing.T) {
	root := testutil.TempConductorDir(t)
	cfg := testutil.DefaultConfig()
	cfg.StatusMix = []model.Status{model.StatusActive, model.StatusBlocked, model.StatusComplete}
	cfg.WithSubtasks = true
	want := testutil.New(cfg).Tracks(25)
	testutil.WriteTracks(t, root, want)

	got, err := loader.LoadTracks(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertTrackCount(t, got, len(want))
	testutil.AssertNoDuplicateIDs(t, got)
	counts := testutil.CountByStatus(want)
	testutil.AssertStatusCounts(t, got, counts[model.StatusActive], counts[model.StatusBlocked], counts[model.StatusComplete])

	for _, w := range want {
		g := testutil.FindTrack(got, w.ID)
		if g == nil {
			t.Errorf("track %s not loaded", w.ID)
			continue
		}
		if g.Status != w.Status {
			t.Errorf("%s: status = %s, want %s", w.ID, g.Status, w.Status)
		}
		if g.ProgressPercent != w.ProgressPercent || g.TasksTotal != w.TasksTotal {
			t.Errorf("%s: progress = %d%% of %d, want %d%% of %d",
				w.ID, g.ProgressPercent, g.TasksTotal, w.ProgressPercent, w.TasksTotal)
		}
		if g.Title != w.Title {
			t.Errorf("%s: title = %q, want %q", w.ID, g.Title, w.Title)
		}
		if !g.LastUpdated.Equal(w.LastUpdated) {
			t.Errorf("%s: LastUpdated = %v, want %v", w.ID, g.LastUpdated, w.LastUpdated)
		}
	}
}

func TestLoadAll_UsesIndex(t *testing.T) {
	root := testutil.TempConductorDir(t)
	testutil.WriteTrackFile(t, root, "auth_20240101", "plan.md", "## Phase 1\n\n- [ ] a\n")
	index := "# Tracks\n\n## [x] Track: Auth Overhaul\n\n_Link: [./tracks/auth_20240101/](./tracks/auth_20240101/)_\n\n**Priority**: high\n"
	if err := os.WriteFile(filepath.Join(root, "tracks.md"), []byte(index), 0o644); err != nil {
		t.Fatal(err)
	}

	tracks, err := loader.LoadTracks(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertTrackCount(t, tracks, 1)
	tr := tracks[0]
	if tr.Title != "Auth Overhaul" {
		t.Errorf("Title = %q, want index title", tr.Title)
	}
	if tr.Status != model.StatusComplete || tr.StatusSource != model.SourceIndex {
		t.Errorf("Status = %s (%s), want complete from index", tr.Status, tr.StatusSource)
	}
	if tr.Priority != model.PriorityHigh {
		t.Errorf("Priority = %s, want high", tr.Priority)
	}
}

func TestLoadAll_SkipsHiddenDirs(t *testing.T) {
	root := testutil.TempConductorDir(t)
	testutil.WriteTrackFile(t, root, "real_1", "plan.md", "- [ ] a\n")
	testutil.WriteTrackFile(t, root, ".cache", "plan.md", "- [ ] a\n")
	testutil.WriteTrackFile(t, root, "_archive", "plan.md", "- [ ] a\n")

	tracks, err := loader.LoadTracks(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if ids := testutil.GetIDs(tracks); !slices.Equal(ids, []model.TrackID{"real_1"}) {
		t.Errorf("ids = %v, want [real_1]", ids)
	}
}

func TestLoadAll_LooseLayout(t *testing.T) {
	root := t.TempDir()
	mk := func(dir, file string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
		if file != "" {
			if err := os.WriteFile(filepath.Join(root, dir, file), []byte("# X\n\n- [x] a\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	mk("alpha_1", "plan.md")
	mk("beta_1", "spec.md")
	mk("styleguides", "")

	s, err := loader.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if s.Layout().Nested {
		t.Fatal("expected loose layout")
	}
	ids, err := s.ScanIDs()
	if err != nil {
		t.Fatal(err)
	}
	if want := []model.TrackID{"alpha_1", "beta_1"}; !slices.Equal(ids, want) {
		t.Errorf("ScanIDs = %v, want %v", ids, want)
	}
	if _, err := s.Parse("styleguides"); !errors.Is(err, parser.ErrTrackGone) {
		t.Errorf("Parse(non-track) = %v, want ErrTrackGone", err)
	}
}

func TestParse_Gone(t *testing.T) {
	root := testutil.TempConductorDir(t)
	testutil.WriteTrackFile(t, root, "a_1", "plan.md", "- [ ] a\n")
	s, err := loader.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(root, "tracks", "a_1")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Parse("a_1"); !errors.Is(err, parser.ErrTrackGone) {
		t.Errorf("expected ErrTrackGone, got %v", err)
	}
}

func TestRefresh_PicksUpLayoutChange(t *testing.T) {
	root := t.TempDir()
	s, err := loader.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if s.Layout().Nested {
		t.Fatal("expected loose layout before tracks/ exists")
	}
	testutil.WriteTrackFile(t, root, "late_1", "plan.md", "- [ ] a\n")
	s.Refresh()
	if !s.Layout().Nested {
		t.Fatal("expected nested layout after tracks/ appeared")
	}
	tr, err := s.Parse("late_1")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Path != filepath.Join(root, "tracks", "late_1") {
		t.Errorf("Path = %s", tr.Path)
	}
}

func TestLoadAll_Cancelled(t *testing.T) {
	root := testutil.TempConductorDir(t)
	testutil.WriteTracks(t, root, testutil.NewDefault().Tracks(5))
	s, err := loader.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.LoadAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
