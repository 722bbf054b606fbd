package ui

import (
	"fmt"
	"maps"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/conductor-dashboard/pkg/analysis"
	"github.com/vanderheijden86/conductor-dashboard/pkg/debug"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

const specCacheLimit = 64

// syncDetail re-renders the detail pane for the current selection and
// reports its size back to the state so scrolling stays clamped. It also
// keeps the list window around the selection.
func (m *Model) syncDetail() {
	w, h := m.detailInner()
	m.viewport.Width, m.viewport.Height = w, h
	m.viewport.SetContent(m.detailContent(w))
	m.state.SetDetailBounds(m.viewport.TotalLineCount(), h)
	m.viewport.SetYOffset(m.state.DetailScroll())
	m.syncListOffset()
}

func (m *Model) syncListOffset() {
	rows := m.listRows()
	n := len(m.state.Visible())
	sel := m.state.SelectedIndex()
	if sel >= 0 {
		if sel < m.listOffset {
			m.listOffset = sel
		}
		if sel >= m.listOffset+rows {
			m.listOffset = sel - rows + 1
		}
	}
	m.listOffset = min(m.listOffset, max(n-rows, 0))
	m.listOffset = max(m.listOffset, 0)
}

func (m *Model) detailContent(width int) string {
	t, ok := m.state.Selected()
	if !ok {
		return ""
	}
	th := m.theme()
	var lines []string
	add := func(s ...string) { lines = append(lines, s...) }

	add(th.Muted.Faint(true).Render(t.Type.String()) + " · " + th.Muted.Render(string(t.ID)))
	add(th.Bold.Render(t.Title))
	add(th.statusStyle(t).Render(StatusLine(t)) + "  Created: " + formatLongDate(t.CreatedAt))
	add(th.Muted.Render(fmt.Sprintf("Updated %s · status from %s", FormatTimeRel(t.LastUpdated, m.now), t.StatusSource)))

	var meta []string
	meta = append(meta, "Priority: "+t.Priority.String())
	if t.Branch != "" {
		meta = append(meta, "Branch: "+t.Branch)
	}
	if len(t.Tags) > 0 {
		meta = append(meta, "Tags: "+strings.Join(t.Tags, ", "))
	}
	add(th.Muted.Render(strings.Join(meta, "  ")))
	add("")

	barW := max(width-14, 4)
	add(th.Bold.Render(fmt.Sprintf("%d/%d ", t.TasksCompleted, t.TasksTotal)) +
		RenderWideBar(t, barW, th) +
		fmt.Sprintf(" %d%%", t.ProgressPercent))
	add("")

	if len(t.Dependencies) > 0 {
		deps := make([]string, len(t.Dependencies))
		for i, d := range t.Dependencies {
			deps[i] = string(d)
		}
		add(th.WarnText.Render("⚠ Blocked by: " + strings.Join(deps, ", ")))
	}
	if dependents := m.dependents(t.ID); len(dependents) > 0 {
		ids := make([]string, len(dependents))
		for i, d := range dependents {
			ids[i] = string(d)
		}
		add(th.AccentText.Render("↳ Unblocks: " + strings.Join(ids, ", ")))
	}
	if lines[len(lines)-1] != "" {
		add("")
	}

	if len(t.Warnings) > 0 {
		for _, w := range t.Warnings {
			add(th.BadText.Render("! " + w))
		}
		add("")
	}

	if t.Description != "" {
		add(t.Description, "")
	}

	if len(t.Phases) > 0 {
		add(RenderSectionHeader("IMPLEMENTATION PLAN", th), "")
		for _, p := range t.Phases {
			iconStyle, nameStyle, countStyle := th.phaseStyles(p.Status)
			total, done := p.Counts()
			add(iconStyle.Render(PhaseIcon(p.Status)) +
				nameStyle.Render(" "+p.Name+" ") +
				countStyle.Render(fmt.Sprintf("(%d/%d)", done, total)))
			for _, task := range p.Tasks {
				lines = appendTask(lines, task, 1, th)
			}
			add("")
		}
	}

	body := th.Renderer.NewStyle().Width(width).Render(strings.Join(lines, "\n"))

	if strings.TrimSpace(t.Spec) != "" {
		body += "\n\n" + RenderSectionHeader("SPECIFICATION", th) + "\n" + m.renderSpec(t.ID, t.Spec, width)
	}
	return body
}

func appendTask(lines []string, task model.Task, depth int, th Theme) []string {
	indent := strings.Repeat("  ", depth)
	if task.Done() {
		lines = append(lines, th.GoodText.Render(indent+"✓ ")+th.Muted.Render(task.Text))
	} else {
		lines = append(lines, th.WarnText.Render(indent+"○ ")+th.Bold.Render(task.Text))
	}
	for _, sub := range task.Subtasks {
		lines = appendTask(lines, sub, depth+1, th)
	}
	return lines
}

func (m *Model) dependents(id model.TrackID) []model.TrackID {
	if m.deps == nil || m.depsVersion != m.repo.Version() {
		m.deps = analysis.NewAnalyzer(m.repo.All())
		m.depsVersion = m.repo.Version()
		m.depsBuilds++
	}
	return m.deps.Dependents(id)
}

// forgetSpec drops cached renders of id's spec.
func (m *Model) forgetSpec(id model.TrackID) {
	maps.DeleteFunc(m.specCache, func(k specKey, _ string) bool { return k.id == id })
}

// renderSpec renders spec.md through glamour, caching by content and width.
func (m *Model) renderSpec(id model.TrackID, src string, width int) string {
	k := specKey{id: id, width: width, src: src}
	if out, ok := m.specCache[k]; ok {
		return out
	}
	if m.md == nil || m.mdWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(width-2, 20)),
		)
		if err != nil {
			debug.Warn("markdown renderer: %v", err)
			return src
		}
		m.md, m.mdWidth = r, width
	}
	out, err := m.md.Render(src)
	if err != nil {
		debug.Warn("render spec %s: %v", id, err)
		out = src
	}
	out = strings.TrimRight(out, "\n")
	if len(m.specCache) >= specCacheLimit {
		clear(m.specCache)
	}
	m.specCache[k] = out
	return out
}
