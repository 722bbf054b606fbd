package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/vanderheijden86/conductor-dashboard/pkg/analysis"
	"github.com/vanderheijden86/conductor-dashboard/pkg/metrics"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/state"
)

const tooSmallMsg = "Terminal too small. Resize to at least 80x24."

func rowZoneID(id model.TrackID) string { return "row-" + string(id) }

// View renders the whole screen.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	if !m.ready {
		return "Loading tracks…"
	}
	th := m.theme()
	if m.width < MinWidth || m.height < MinHeight {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, th.BadText.Render(tooSmallMsg))
	}

	if m.state.View() == state.ViewHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderHelp(th))
	}

	sections := []string{m.renderTitleBar(th), m.renderStatsBar(th)}
	if m.errorBarShown() {
		sections = append(sections, th.ErrorBar.Render(fitLine(" ⚠ "+m.statusMsg, m.width)))
	}
	sections = append(sections, m.renderBody(th), m.renderStatusBar(th))
	out := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.state.View() == state.ViewSearch {
		out = overlayLine(out, m.layout().top, m.renderSearchBox(th))
	}
	return m.zones.Scan(out)
}

func (m Model) renderTitleBar(th Theme) string {
	left := " ◇ Conductor Dashboard"
	clock := m.now.Format("15:04:05")
	ind, indStyle := m.watchIndicator(th)
	used := ansi.StringWidth(left) + ansi.StringWidth(clock) + 2 + ansi.StringWidth(ind) + 1
	pad := max(m.width-used, 1)
	return th.BarBold.Render(left) +
		th.Bar.Render(strings.Repeat(" ", pad)+clock+"  ") +
		indStyle.Inherit(th.Bar).Render(ind) +
		th.Bar.Render(" ")
}

func (m Model) watchIndicator(th Theme) (string, lipgloss.Style) {
	switch {
	case m.opts.NoWatch:
		return "○ STATIC", th.Muted
	case m.watcher == nil:
		return "● WATCHER ERROR", th.BadText
	case m.degraded || m.watcher.IsPolling():
		return "◐ POLLING", th.WarnText
	default:
		return "● WATCHING", th.GoodText
	}
}

func (m Model) renderStatsBar(th Theme) string {
	ps := analysis.Progress(m.repo.All())
	sep := " │ "
	counts := th.Bold.Render(fmt.Sprintf(" %d Total", ps.Tracks)) + sep +
		th.AccentText.Render(fmt.Sprintf("%d Active", ps.Active)) + sep +
		th.WarnText.Render(fmt.Sprintf("%d Blocked", ps.Blocked)) + sep +
		th.GoodText.Render(fmt.Sprintf("%d Complete", ps.Complete))
	if ps.TasksTotal > 0 {
		counts += th.Muted.Render(fmt.Sprintf("  │  %d/%d tasks (%d%%)", ps.TasksCompleted, ps.TasksTotal, ps.OverallPercent))
	}

	var filters []string
	for _, f := range state.FilterModes() {
		if f == m.state.Filter() {
			filters = append(filters, "["+f.Label()+"]")
		} else {
			filters = append(filters, " "+f.Label()+" ")
		}
	}
	var sorts []string
	for _, s := range []state.SortMode{state.SortLastUpdated, state.SortProgress} {
		if s == m.state.Sort() {
			sorts = append(sorts, "["+s.Label()+"]")
		} else {
			sorts = append(sorts, " "+s.Label()+" ")
		}
	}
	controls := " Filter: " + strings.Join(filters, " ") + "  │  Sort: " + strings.Join(sorts, " ")
	if q := m.state.Query(); q != "" && m.state.View() != state.ViewSearch {
		controls += fmt.Sprintf("  │  Search: %q", q)
	}
	return fitLine(counts, m.width) + "\n" + fitLine(th.Muted.Render(controls), m.width)
}

func (m Model) renderStatusBar(th Theme) string {
	var left string
	if m.statusMsg != "" && !m.statusIsError {
		left = th.Bar.Render(" " + m.statusMsg)
	} else {
		left = th.Bar.Render(" ") + m.help.ShortHelpView(m.keys.ShortHelp())
	}
	right := th.Bar.Render(" │ " + th.Name + " ")
	w := max(m.width-ansi.StringWidth(right), 0)
	left = ansi.Truncate(left, w, "")
	if gap := w - ansi.StringWidth(left); gap > 0 {
		left += th.Bar.Render(strings.Repeat(" ", gap))
	}
	return left + right
}

func (m Model) renderBody(th Theme) string {
	l := m.layout()
	var parts []string
	if l.list.w > 0 {
		parts = append(parts, m.renderList(th, l.list.w, l.height))
	}
	if l.detail.w > 0 {
		parts = append(parts, m.renderDetail(th, l.detail.w, l.height))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) panelStyle(th Theme, focused bool, w, h int) lipgloss.Style {
	s := th.Panel
	if focused {
		s = th.FocusPanel
	}
	return s.Width(w - 2).Height(h - 2)
}

func (m Model) renderList(th Theme, w, h int) string {
	inner := w - 2
	visible := m.state.Visible()

	trackW := inner - listMarkerW - listStatusW - listProgressW - listTasksW - 3*listColumnGap
	trackW = max(trackW, 6)

	header := strings.Repeat(" ", listMarkerW) +
		padRight(fmt.Sprintf("Track (%d)", len(visible)), trackW) + " " +
		padRight("Stat", listStatusW) + " " +
		padRight("Progress", listProgressW) + " " +
		fmt.Sprintf("%*s", listTasksW, "Tasks")
	lines := []string{fitLine(th.MutedBold.Render(header), inner), ""}

	if len(visible) == 0 {
		msg := "No tracks"
		if m.state.Query() != "" || m.state.Filter() != state.FilterAll {
			msg = "No tracks match the current filter"
		}
		lines = append(lines, th.Muted.Render(msg))
	}

	rows := m.listRows()
	end := min(m.listOffset+rows, len(visible))
	for i := m.listOffset; i < end; i++ {
		t := visible[i]
		selected := i == m.state.SelectedIndex()
		row := m.renderRow(th, t, selected, inner, trackW)
		lines = append(lines, m.zones.Mark(rowZoneID(t.ID), row))
	}

	focused := m.state.BaseView() == state.ViewList
	return m.panelStyle(th, focused, w, h).Render(strings.Join(lines, "\n"))
}

func (m Model) renderRow(th Theme, t model.Track, selected bool, inner, trackW int) string {
	marker := "  "
	if selected {
		marker = "▸ "
	}
	title := padRight(truncate(t.Title, trackW), trackW)
	tasks := fmt.Sprintf("%*s", listTasksW, fmt.Sprintf("%d/%d", t.TasksCompleted, t.TasksTotal))

	sub := t.CurrentPhase()
	date := formatShortDate(t.CreatedAt)
	if date == "" {
		date = FormatTimeRel(t.LastUpdated, m.now)
	}
	if sub != "" {
		sub += " · "
	}
	sub = "  " + truncate(sub+date, inner-2)

	if selected {
		filled, empty := barCells(t.ProgressPercent, listBarWidth)
		bar := fmt.Sprintf("%s%s %3d%%", strings.Repeat("█", filled), strings.Repeat("░", empty), t.ProgressPercent)
		line1 := marker + title + " " + StatusBadge(t) + " " + bar + " " + tasks
		return th.Selected.Render(fitLine(line1, inner)) + "\n" + th.Selected.Render(fitLine(sub, inner))
	}

	line1 := marker + th.Bold.Render(title) + " " +
		th.statusStyle(t).Render(StatusBadge(t)) + " " +
		RenderProgressBar(t, th) + " " + tasks
	return fitLine(line1, inner) + "\n" + fitLine(th.Muted.Render(sub), inner)
}

func (m Model) renderDetail(th Theme, w, h int) string {
	base := m.state.BaseView()
	focused := base == state.ViewDetail || base == state.ViewMaximizedDetail
	style := m.panelStyle(th, focused, w, h)
	if _, ok := m.state.Selected(); !ok {
		return style.Render(lipgloss.Place(w-2, h-2, lipgloss.Center, lipgloss.Center,
			th.Muted.Render("Select a track to view details")))
	}
	return style.Render(m.viewport.View())
}

func (m Model) renderSearchBox(th Theme) string {
	line := th.AccentBold.Render(" / ") + m.state.Query() + th.AccentText.Render("█")
	return th.SearchBox.Render(fitLine(line, m.width))
}

func (m Model) renderHelp(th Theme) string {
	lines := []string{th.Bold.Render("Keyboard Shortcuts"), ""}
	for _, group := range m.keys.FullHelp() {
		for _, b := range group {
			h := b.Help()
			lines = append(lines, fmt.Sprintf("  %-9s %s", h.Key, h.Desc))
		}
	}
	lines = append(lines, "", th.Muted.Render("Press any key to close"))
	return th.Overlay.Render(strings.Join(lines, "\n"))
}

// overlayLine replaces line n of s with repl.
func overlayLine(s string, n int, repl string) string {
	lines := strings.Split(s, "\n")
	if n < 0 || n >= len(lines) {
		return s
	}
	lines[n] = repl
	return strings.Join(lines, "\n")
}
