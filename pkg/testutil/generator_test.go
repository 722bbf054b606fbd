package testutil

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

func TestTracks_Deterministic(t *testing.T) {
	a := New(DefaultConfig()).Tracks(10)
	b := New(DefaultConfig()).Tracks(10)
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("track %d differs between runs with the same seed", i)
		}
	}
	AssertNoDuplicateIDs(t, a)
}

func TestTracks_StatusConsistentWithTasks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusMix = []model.Status{model.StatusActive, model.StatusBlocked, model.StatusComplete}
	cfg.WithSubtasks = true
	for _, tr := range New(cfg).Tracks(50) {
		switch tr.Status {
		case model.StatusComplete:
			if tr.ProgressPercent != 100 {
				t.Errorf("%s: complete track at %d%%", tr.ID, tr.ProgressPercent)
			}
		case model.StatusActive, model.StatusBlocked:
			if tr.TasksCompleted >= tr.TasksTotal {
				t.Errorf("%s: %s track has every task done", tr.ID, tr.Status)
			}
		}
	}
}

func TestPlanMarkdown(t *testing.T) {
	tr := model.Track{
		Title: "Auth",
		Phases: []model.Phase{
			{Name: "Phase 1: Setup", Tasks: []model.Task{
				{Text: "a", Checked: true, Subtasks: []model.Task{{Text: "a1", Checked: true}}},
			}},
			{Name: "Phase 2: Ship", Marker: model.StatusBlocked, Tasks: []model.Task{{Text: "b"}}},
		},
	}
	got := PlanMarkdown(tr)
	for _, want := range []string{"# Auth\n", "## Phase 1: Setup\n", "- [x] a\n", "  - [x] a1\n", "## Phase 2: Ship (BLOCKED)\n", "- [ ] b\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("PlanMarkdown missing %q:\n%s", want, got)
		}
	}
}

func TestNamed(t *testing.T) {
	tracks := Named("Vodafone Sync", "AAPL Ingestion")
	AssertTrackCount(t, tracks, 2)
	if tracks[0].ID != "vodafone_sync_000" {
		t.Errorf("ID = %s", tracks[0].ID)
	}
	if tracks[0].ProgressPercent != 100 {
		t.Errorf("empty track progress = %d, want 100", tracks[0].ProgressPercent)
	}
}

func TestWithStatus(t *testing.T) {
	AssertStatusCounts(t, WithStatus("done", model.StatusComplete, 3), 0, 0, 3)
}
