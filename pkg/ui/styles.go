package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// LAYOUT TOKENS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// Below these the dashboard only prints a resize hint.
	MinWidth  = 40
	MinHeight = 10

	// Below SplitWidth only one pane is shown.
	SplitWidth = 80

	// Fixed chrome: title bar, two stats lines, status bar.
	chromeLines = 4

	listBarWidth   = 8
	listStatusW    = 5
	listProgressW  = 13 // bar + " 100%"
	listTasksW     = 7
	listColumnGap  = 1
	listMarkerW    = 2 // "▸ "
	rowHeight      = 2 // title + subtitle
	listHeaderRows = 2 // header + blank

	wheelLines = 3
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS AND PHASE GLYPHS
// ══════════════════════════════════════════════════════════════════════════════

// StatusBadge returns the short list-column label for a track.
// Active tracks with nothing done yet read as NEW.
func StatusBadge(t model.Track) string {
	switch t.Status {
	case model.StatusActive:
		if t.TasksCompleted == 0 {
			return "○ NEW"
		}
		return "⚙ ACT"
	case model.StatusBlocked:
		return "⚠ BLK"
	case model.StatusComplete:
		return "✓ DON"
	default:
		return "? UNK"
	}
}

// StatusLine returns the long status label used in the detail pane.
func StatusLine(t model.Track) string {
	switch t.Status {
	case model.StatusActive:
		if t.TasksCompleted == 0 {
			return "○ New"
		}
		return "⚙ Active"
	case model.StatusBlocked:
		return "⚠ Blocked"
	case model.StatusComplete:
		return "✓ Complete"
	default:
		return "? Unknown"
	}
}

func (t Theme) statusStyle(tr model.Track) lipgloss.Style {
	switch tr.Status {
	case model.StatusActive:
		if tr.TasksCompleted == 0 {
			return t.Muted
		}
		return t.AccentBold
	case model.StatusBlocked:
		return t.WarnBold
	case model.StatusComplete:
		return t.GoodText
	default:
		return t.BadText
	}
}

// PhaseIcon returns the glyph for a phase state.
func PhaseIcon(s model.PhaseStatus) string {
	switch s {
	case model.PhaseComplete:
		return "●"
	case model.PhaseActive:
		return "◐"
	case model.PhaseBlocked:
		return "⊘"
	default:
		return "○"
	}
}

func (t Theme) phaseStyles(s model.PhaseStatus) (icon, name, count lipgloss.Style) {
	switch s {
	case model.PhaseComplete:
		return t.GoodText, t.GoodBold, t.GoodText
	case model.PhaseActive:
		return t.AccentText, t.AccentBold, t.AccentText
	case model.PhaseBlocked:
		return t.WarnText, t.Bold, t.Muted
	default:
		return t.Muted, t.Bold, t.Muted
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS BARS
// ══════════════════════════════════════════════════════════════════════════════

// barCells splits width into filled and empty cells for pct (0..100).
func barCells(pct, width int) (filled, empty int) {
	if width <= 0 {
		return 0, 0
	}
	pct = min(max(pct, 0), 100)
	filled = (pct*width + 50) / 100
	return filled, width - filled
}

func (t Theme) progressColor(tr model.Track) lipgloss.TerminalColor {
	switch {
	case tr.Status == model.StatusComplete:
		return t.ProgressDone
	case tr.Status == model.StatusBlocked:
		return t.ProgressBlocked
	case tr.ProgressPercent > 0:
		return t.ProgressActive
	default:
		return t.ProgressNew
	}
}

// RenderProgressBar renders the list column bar: 8 cells and a right-aligned
// percentage.
func RenderProgressBar(tr model.Track, t Theme) string {
	filled, empty := barCells(tr.ProgressPercent, listBarWidth)
	bar := fmt.Sprintf("%s%s %3d%%", strings.Repeat("█", filled), strings.Repeat("░", empty), tr.ProgressPercent)
	return t.Renderer.NewStyle().Foreground(t.progressColor(tr)).Render(bar)
}

// RenderWideBar renders the detail pane bar filling width cells.
func RenderWideBar(tr model.Track, width int, t Theme) string {
	filled, empty := barCells(tr.ProgressPercent, width)
	return t.Renderer.NewStyle().Foreground(t.progressColor(tr)).Render(strings.Repeat("█", filled)) +
		t.Renderer.NewStyle().Foreground(t.Border).Render(strings.Repeat("░", empty))
}

// RenderDivider renders a horizontal divider line.
func RenderDivider(width int, t Theme) string {
	if width <= 0 {
		return ""
	}
	return t.Renderer.NewStyle().Foreground(t.Border).Render(strings.Repeat("─", width))
}

// RenderSectionHeader renders "━━ TITLE ━━".
func RenderSectionHeader(title string, t Theme) string {
	return t.AccentText.Render("━━ ") + t.AccentBold.Render(title) + t.AccentText.Render(" ━━")
}
