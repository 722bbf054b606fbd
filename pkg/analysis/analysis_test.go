package analysis

import (
	"math"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/testutil"
)

func track(id string, status model.Status, deps ...string) model.Track {
	t := model.Track{ID: model.TrackID(id), Title: id, Status: status}
	for _, d := range deps {
		t.Dependencies = append(t.Dependencies, model.TrackID(d))
	}
	return t
}

func TestAnalyze_Chain(t *testing.T) {
	// api depends on auth, ui depends on api and auth.
	tracks := []model.Track{
		track("ui", model.StatusActive, "api", "auth"),
		track("api", model.StatusActive, "auth"),
		track("auth", model.StatusComplete),
	}
	stats := NewAnalyzer(tracks).Analyze()

	if stats.NodeCount != 3 || stats.EdgeCount != 3 {
		t.Fatalf("nodes=%d edges=%d", stats.NodeCount, stats.EdgeCount)
	}
	if stats.InDegree["auth"] != 2 || stats.OutDegree["ui"] != 2 {
		t.Errorf("degrees: in(auth)=%d out(ui)=%d", stats.InDegree["auth"], stats.OutDegree["ui"])
	}
	want := []model.TrackID{"auth", "api", "ui"}
	if !slices.Equal(stats.TopologicalOrder, want) {
		t.Errorf("topo order = %v, want %v", stats.TopologicalOrder, want)
	}
	if stats.HasCycles() {
		t.Errorf("unexpected cycles %v", stats.Cycles)
	}
	if top := stats.TopBlockers(1); len(top) != 1 || top[0] != "auth" {
		t.Errorf("top blocker = %v, want auth", top)
	}
}

func TestAnalyze_Cycles(t *testing.T) {
	tracks := []model.Track{
		track("a", model.StatusActive, "b"),
		track("b", model.StatusActive, "c"),
		track("c", model.StatusActive, "a"),
		track("d", model.StatusActive, "d"),
		track("e", model.StatusActive),
	}
	stats := NewAnalyzer(tracks).Analyze()
	if stats.TopologicalOrder != nil {
		t.Errorf("cyclic graph must have no order, got %v", stats.TopologicalOrder)
	}
	want := [][]model.TrackID{{"a", "b", "c"}, {"d"}}
	if len(stats.Cycles) != len(want) {
		t.Fatalf("cycles = %v, want %v", stats.Cycles, want)
	}
	for i := range want {
		if !slices.Equal(stats.Cycles[i], want[i]) {
			t.Errorf("cycle %d = %v, want %v", i, stats.Cycles[i], want[i])
		}
	}
}

func TestAnalyze_MissingDependencies(t *testing.T) {
	tracks := []model.Track{track("a", model.StatusBlocked, "ghost", "b"), track("b", model.StatusActive)}
	a := NewAnalyzer(tracks)
	stats := a.Analyze()
	if got := stats.Missing["a"]; len(got) != 1 || got[0] != "ghost" {
		t.Errorf("missing = %v", stats.Missing)
	}
	if got := a.OpenBlockers("a"); !slices.Equal(got, []model.TrackID{"ghost", "b"}) {
		t.Errorf("open blockers = %v", got)
	}
	if got := a.Dependents("b"); !slices.Equal(got, []model.TrackID{"a"}) {
		t.Errorf("dependents(b) = %v", got)
	}
	if a.Dependents("nope") != nil || a.OpenBlockers("nope") != nil {
		t.Error("unknown ids should give nil")
	}
}

func TestAnalyze_Empty(t *testing.T) {
	stats := NewAnalyzer(nil).Analyze()
	if stats.NodeCount != 0 || len(stats.PageRank) != 0 || stats.HasCycles() {
		t.Errorf("empty analysis = %+v", stats)
	}
	if len(stats.TopBlockers(5)) != 0 {
		t.Error("no blockers expected")
	}
}

func TestProgress(t *testing.T) {
	mk := func(status model.Status, done, total int) model.Track {
		return model.Track{
			Status:          status,
			TasksCompleted:  done,
			TasksTotal:      total,
			ProgressPercent: model.Percent(done, total),
		}
	}
	tracks := []model.Track{
		mk(model.StatusActive, 0, 4),   // 0%
		mk(model.StatusActive, 2, 4),   // 50%
		mk(model.StatusBlocked, 1, 4),  // 25%
		mk(model.StatusComplete, 4, 4), // 100%
	}
	ps := Progress(tracks)
	if ps.Tracks != 4 || ps.Active != 2 || ps.New != 1 || ps.Blocked != 1 || ps.Complete != 1 || ps.Unknown != 0 {
		t.Errorf("counts = %+v", ps)
	}
	if ps.TasksTotal != 16 || ps.TasksCompleted != 7 || ps.OverallPercent != 44 {
		t.Errorf("tasks = %d/%d (%d%%)", ps.TasksCompleted, ps.TasksTotal, ps.OverallPercent)
	}
	if ps.MeanPercent != 43.75 {
		t.Errorf("mean = %v", ps.MeanPercent)
	}
	if ps.MedianPercent < 25 || ps.MedianPercent > 50 {
		t.Errorf("median = %v, want within [25,50]", ps.MedianPercent)
	}
	if ps.StdDevPercent <= 0 {
		t.Errorf("stddev = %v", ps.StdDevPercent)
	}
}

func TestProgress_EmptyAndSingle(t *testing.T) {
	if ps := Progress(nil); ps.Tracks != 0 || ps.OverallPercent != 100 || ps.MeanPercent != 0 {
		t.Errorf("empty = %+v", ps)
	}
	ps := Progress([]model.Track{{Status: model.StatusComplete, ProgressPercent: 100}})
	if ps.StdDevPercent != 0 || ps.MedianPercent != 100 {
		t.Errorf("single = %+v", ps)
	}
}

func TestProgress_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(rt, "n")
		seed := rapid.Int64().Draw(rt, "seed")
		cfg := testutil.DefaultConfig()
		cfg.Seed = seed
		cfg.StatusMix = []model.Status{model.StatusActive, model.StatusBlocked, model.StatusComplete}
		tracks := testutil.New(cfg).Tracks(n)

		ps := Progress(tracks)
		if ps.Active+ps.Blocked+ps.Complete+ps.Unknown != ps.Tracks {
			rt.Fatalf("status counts do not add up: %+v", ps)
		}
		if ps.New > ps.Active {
			rt.Fatalf("new %d > active %d", ps.New, ps.Active)
		}
		for _, v := range []float64{ps.MeanPercent, ps.MedianPercent} {
			if math.IsNaN(v) || v < 0 || v > 100 {
				rt.Fatalf("statistic out of range: %+v", ps)
			}
		}
		if ps.OverallPercent < 0 || ps.OverallPercent > 100 {
			rt.Fatalf("overall = %d", ps.OverallPercent)
		}
	})
}
