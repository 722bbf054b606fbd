package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

func TestFormatTimeRel(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{-time.Hour, "now"},
		{30 * time.Second, "now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{2 * 24 * time.Hour, "2d ago"},
		{14 * 24 * time.Hour, "2w ago"},
		{90 * 24 * time.Hour, "3mo ago"},
	}
	for _, tt := range tests {
		if got := FormatTimeRel(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("FormatTimeRel(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if got := FormatTimeRel(time.Time{}, now); got != "unknown" {
		t.Errorf("zero time = %q", got)
	}
}

func TestTruncateRunesHelper(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello w…"},
		{"日本語タイトル", 7, "日本語…"},
		{"abc", 0, ""},
		{"abcdef", 1, "…"},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.width)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if runewidth.StringWidth(got) > tt.width {
			t.Errorf("truncate(%q, %d) is %d cells wide", tt.in, tt.width, runewidth.StringWidth(got))
		}
	}
}

func TestPadRight_WideRunes(t *testing.T) {
	got := padRight("日本", 6)
	if runewidth.StringWidth(got) != 6 {
		t.Errorf("padRight width = %d, want 6", runewidth.StringWidth(got))
	}
	if padRight("toolong", 3) != "toolong" {
		t.Error("padRight must not cut")
	}
}

func TestFitLine(t *testing.T) {
	th := TestTheme()
	styled := th.Bold.Render("hello") + " world"
	if w := ansi.StringWidth(fitLine(styled, 20)); w != 20 {
		t.Errorf("padded width = %d", w)
	}
	if w := ansi.StringWidth(fitLine(styled, 5)); w != 5 {
		t.Errorf("cut width = %d", w)
	}
	if fitLine("x", 0) != "" {
		t.Error("zero width should be empty")
	}
}

func TestBarCells(t *testing.T) {
	tests := []struct {
		pct, width, filled int
	}{
		{0, 8, 0},
		{100, 8, 8},
		{50, 8, 4},
		{75, 8, 6},
		{6, 8, 0},
		{7, 8, 1},
		{150, 8, 8},
		{-5, 8, 0},
	}
	for _, tt := range tests {
		f, e := barCells(tt.pct, tt.width)
		if f != tt.filled || f+e != tt.width {
			t.Errorf("barCells(%d,%d) = %d,%d want filled %d", tt.pct, tt.width, f, e, tt.filled)
		}
	}
}

func TestStatusBadge(t *testing.T) {
	tests := []struct {
		status model.Status
		done   int
		badge  string
		line   string
	}{
		{model.StatusActive, 1, "⚙ ACT", "⚙ Active"},
		{model.StatusActive, 0, "○ NEW", "○ New"},
		{model.StatusBlocked, 0, "⚠ BLK", "⚠ Blocked"},
		{model.StatusComplete, 3, "✓ DON", "✓ Complete"},
		{model.StatusUnknown, 0, "? UNK", "? Unknown"},
	}
	for _, tt := range tests {
		tr := model.Track{Status: tt.status, TasksCompleted: tt.done}
		if got := StatusBadge(tr); got != tt.badge {
			t.Errorf("StatusBadge(%s,%d) = %q, want %q", tt.status, tt.done, got, tt.badge)
		}
		if got := StatusLine(tr); got != tt.line {
			t.Errorf("StatusLine(%s,%d) = %q, want %q", tt.status, tt.done, got, tt.line)
		}
		if w := runewidth.StringWidth(StatusBadge(tr)); w != listStatusW {
			t.Errorf("badge %q is %d cells, column is %d", StatusBadge(tr), w, listStatusW)
		}
	}
}

func TestPhaseIcon(t *testing.T) {
	want := map[model.PhaseStatus]string{
		model.PhaseComplete: "●",
		model.PhaseActive:   "◐",
		model.PhasePending:  "○",
		model.PhaseBlocked:  "⊘",
	}
	for s, icon := range want {
		if got := PhaseIcon(s); got != icon {
			t.Errorf("PhaseIcon(%s) = %q, want %q", s, got, icon)
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	th := TestTheme()
	tr := model.Track{ProgressPercent: 50, Status: model.StatusActive}
	got := ansi.Strip(RenderProgressBar(tr, th))
	if got != "████░░░░  50%" {
		t.Errorf("bar = %q", got)
	}
	if w := ansi.StringWidth(got); w != listProgressW {
		t.Errorf("bar is %d cells, column is %d", w, listProgressW)
	}
	wide := ansi.Strip(RenderWideBar(model.Track{ProgressPercent: 100}, 20, th))
	if wide != strings.Repeat("█", 20) {
		t.Errorf("wide bar = %q", wide)
	}
}

func TestDates(t *testing.T) {
	d := time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC)
	if got := formatShortDate(&d); got != "Feb 07" {
		t.Errorf("short = %q", got)
	}
	if got := formatLongDate(&d); got != "Feb 07, 2025" {
		t.Errorf("long = %q", got)
	}
	if formatShortDate(nil) != "" || formatLongDate(nil) != "Unknown" {
		t.Error("nil dates")
	}
}
