package export

import (
	"bytes"
	"database/sql"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/testutil"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleTracks() []model.Track {
	auth := model.Track{
		ID:     "auth_20260101",
		Title:  "Auth rework",
		Status: model.StatusComplete,
		Phases: []model.Phase{{
			Name: "Phase 1: Tokens",
			Tasks: []model.Task{
				{Text: "Rotate keys", Checked: true},
				{Text: "Refresh flow", Checked: true, Subtasks: []model.Task{{Text: "Sliding expiry", Checked: true}}},
			},
		}},
		Tags: []string{"security"},
	}
	api := model.Track{
		ID:           "api_20260201",
		Title:        "API | v2",
		Status:       model.StatusActive,
		Priority:     model.PriorityMedium,
		Dependencies: []model.TrackID{"auth_20260101", "ghost"},
		Description:  "Versioned endpoints with pagination.",
		Phases: []model.Phase{
			{Name: "Phase 1: Design", Tasks: []model.Task{{Text: "Draft schema", Checked: true}, {Text: "Review"}}},
			{Name: "Phase 2: Build", Tasks: []model.Task{{Text: "Handlers"}}},
		},
	}
	ui := model.Track{
		ID:           "ui_20260301",
		Title:        "Dashboard UI",
		Status:       model.StatusBlocked,
		Dependencies: []model.TrackID{"api_20260201"},
		Phases:       []model.Phase{{Name: "Phase 1", Tasks: []model.Task{{Text: "Wireframes"}}}},
	}
	tracks := []model.Track{ui, api, auth}
	for i := range tracks {
		tracks[i].Recount()
		tracks[i].LastUpdated = fixedNow.Add(-time.Duration(i) * time.Hour)
	}
	return tracks
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"sqlite", FormatSQLite, false},
		{".db", FormatSQLite, false},
		{"SVG", FormatSVG, false},
		{".png", FormatPNG, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestExport_RequiresPath(t *testing.T) {
	if err := Export(Options{Tracks: sampleTracks()}); err == nil {
		t.Fatal("expected error for empty path")
	}
	path := filepath.Join(t.TempDir(), "out.unknown")
	if err := Export(Options{Path: path, Tracks: sampleTracks()}); err == nil {
		t.Fatal("expected error for unknown extension")
	}
}

func TestExport_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracks.db")
	if err := Export(Options{Path: path, Tracks: sampleTracks(), Root: "/work/conductor", Now: fixedNow}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	count := func(query string, args ...any) int {
		t.Helper()
		var n int
		if err := db.QueryRow(query, args...).Scan(&n); err != nil {
			t.Fatalf("%s: %v", query, err)
		}
		return n
	}

	if n := count(`SELECT COUNT(*) FROM tracks`); n != 3 {
		t.Errorf("tracks = %d, want 3", n)
	}
	if n := count(`SELECT COUNT(*) FROM phases`); n != 4 {
		t.Errorf("phases = %d, want 4", n)
	}
	// Five top-level tasks plus one subtask.
	if n := count(`SELECT COUNT(*) FROM tasks`); n != 7 {
		t.Errorf("tasks = %d, want 7", n)
	}
	if n := count(`SELECT COUNT(*) FROM tasks WHERE parent_id IS NOT NULL AND depth = 1`); n != 1 {
		t.Errorf("subtasks = %d, want 1", n)
	}
	if n := count(`SELECT COUNT(*) FROM dependencies WHERE resolved = 0`); n != 1 {
		t.Errorf("unresolved deps = %d, want 1", n)
	}

	var status, priority string
	var pct int
	if err := db.QueryRow(`SELECT status, priority, progress_percent FROM tracks WHERE id = ?`, "api_20260201").
		Scan(&status, &priority, &pct); err != nil {
		t.Fatalf("select api: %v", err)
	}
	if status != "active" || priority != "medium" || pct != 33 {
		t.Errorf("api row = %s/%s/%d", status, priority, pct)
	}

	var dependents int
	var unblocks sql.NullString
	if err := db.QueryRow(`SELECT dependents_count, unblocks_ids FROM track_overview_mv WHERE id = ?`, "auth_20260101").
		Scan(&dependents, &unblocks); err != nil {
		t.Fatalf("select overview: %v", err)
	}
	if dependents != 1 || unblocks.String != "api_20260201" {
		t.Errorf("auth overview = %d %q", dependents, unblocks.String)
	}

	if n := count(`SELECT COUNT(*) FROM tracks_fts WHERE tracks_fts MATCH ?`, "pagination"); n != 1 {
		t.Errorf("fts matches = %d, want 1", n)
	}

	var exportedAt, root string
	if err := db.QueryRow(`SELECT value FROM export_meta WHERE key = 'exported_at'`).Scan(&exportedAt); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow(`SELECT value FROM export_meta WHERE key = 'conductor_dir'`).Scan(&root); err != nil {
		t.Fatal(err)
	}
	if exportedAt != "2026-03-14T09:30:00Z" || root != "/work/conductor" {
		t.Errorf("meta = %q %q", exportedAt, root)
	}
}

func TestExport_SQLiteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.sqlite")
	if err := os.WriteFile(path, []byte("not a database"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Export(Options{Path: path, Tracks: testutil.NewDefault().Tracks(5)}); err != nil {
		t.Fatalf("Export over garbage file: %v", err)
	}
	if err := Export(Options{Path: path, Tracks: testutil.NewDefault().Tracks(2)}); err != nil {
		t.Fatalf("second export: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("tracks = %d, want 2 after re-export", n)
	}
}

func TestExport_SVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.svg")
	if err := Export(Options{Path: path, Tracks: sampleTracks(), Title: "Sprint", Now: fixedNow}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	svg := string(data)
	for _, want := range []string{"<svg", "Sprint", "Dashboard UI", "top blocker: auth_20260101", "Complete"} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if got := strings.Count(svg, `id="track-`); got != 3 {
		t.Errorf("track groups = %d, want 3", got)
	}
}

func TestExport_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	if err := Export(Options{Path: path, Tracks: sampleTracks(), Now: fixedNow}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	layout := buildChartLayout(Options{Tracks: sampleTracks(), Now: fixedNow})
	if b := img.Bounds(); b.Dx() != layout.Width || b.Dy() != layout.Height {
		t.Errorf("png size = %v, want %dx%d", b, layout.Width, layout.Height)
	}
}

func TestExport_ChartEmpty(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"empty.svg", "empty.png"} {
		if err := Export(Options{Path: filepath.Join(dir, name)}); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestFillWidth(t *testing.T) {
	tests := []struct{ pct, want int }{
		{-5, 0}, {0, 0}, {50, chartBarW / 2}, {100, chartBarW}, {140, chartBarW},
	}
	for _, tt := range tests {
		if got := fillWidth(tt.pct); got != tt.want {
			t.Errorf("fillWidth(%d) = %d, want %d", tt.pct, got, tt.want)
		}
	}
}

func TestGenerateMarkdown(t *testing.T) {
	md := GenerateMarkdown(Options{Title: "Tracks", Tracks: sampleTracks(), Now: fixedNow})

	for _, want := range []string{
		"# Tracks",
		"| Tracks | 3 |",
		"| Top blockers | `auth_20260101`, `api_20260201` |",
		"## Table of Contents",
		"(#api-20260201-api-v2)",
		"```mermaid",
		"auth_20260101 ==> api_20260201",
		"ghost -.-> api_20260201",
		"class ghost missing",
		"| **Unblocks** | `ui_20260301` |",
		"- [x] Refresh flow\n  - [x] Sliding expiry",
		"### 🔄 Phase 1: Design (1/2)",
		"Versioned endpoints with pagination.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "Dependency cycles") {
		t.Error("no cycles expected")
	}
}

func TestGenerateMarkdown_EmptyAndCycles(t *testing.T) {
	if md := GenerateMarkdown(Options{}); !strings.Contains(md, "_No tracks found._") {
		t.Errorf("empty report:\n%s", md)
	}

	tracks := []model.Track{
		{ID: "a", Title: "a", Status: model.StatusActive, Dependencies: []model.TrackID{"b"}},
		{ID: "b", Title: "b", Status: model.StatusActive, Dependencies: []model.TrackID{"a"}},
	}
	md := GenerateMarkdown(Options{Tracks: tracks})
	if !strings.Contains(md, "Dependency cycles: `a → b`") {
		t.Errorf("cycle not reported:\n%s", md)
	}
}

func TestMermaidIDsStayUnique(t *testing.T) {
	tracks := []model.Track{
		{ID: "a.b", Title: "one"},
		{ID: "ab", Title: "two"},
	}
	g := GenerateMermaidGraph(tracks)
	if !strings.Contains(g, "    ab[") || !strings.Contains(g, "    ab-1[") {
		t.Errorf("expected ab and ab-1 nodes:\n%s", g)
	}
}

func TestSlugs(t *testing.T) {
	counts := map[string]int{}
	if got := uniqueSlug(createSlug("API | v2"), counts); got != "api-v2" {
		t.Errorf("slug = %q", got)
	}
	if got := uniqueSlug(createSlug("api v2"), counts); got != "api-v2-1" {
		t.Errorf("second slug = %q", got)
	}
	if got := uniqueSlug(createSlug("!!!"), counts); got != "section" {
		t.Errorf("empty slug = %q", got)
	}
}

func TestSanitizeMermaidText(t *testing.T) {
	got := sanitizeMermaidText("a [b] {c} <d> \"e\" |f|\n")
	if strings.ContainsAny(got, "[]{}<>\"|\n") {
		t.Errorf("unsanitized: %q", got)
	}
	if long := sanitizeMermaidText(strings.Repeat("x", 60)); len([]rune(long)) != 40 {
		t.Errorf("long text not truncated: %d runes", len([]rune(long)))
	}
}
