package export

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/vanderheijden86/conductor-dashboard/pkg/analysis"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeMermaidID keeps letters, digits, dashes and underscores.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "node"
	}
	return sb.String()
}

func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, replacer.Replace(text))
	return truncate(strings.TrimSpace(result), 40)
}

// GenerateMarkdown renders a report: summary table, table of contents,
// dependency graph and one section per track with its phases and tasks.
func GenerateMarkdown(opts Options) string {
	var sb strings.Builder
	ps := analysis.Progress(opts.Tracks)
	a := analysis.NewAnalyzer(opts.Tracks)
	stats := a.Analyze()

	title := opts.Title
	if title == "" {
		title = "Conductor Tracks"
	}
	sb.WriteString("# " + title + "\n\n")
	if !opts.Now.IsZero() {
		sb.WriteString(fmt.Sprintf("*Generated %s*\n\n", opts.Now.Format("Jan 2, 2006 15:04 MST")))
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Tracks | %d |\n", ps.Tracks))
	sb.WriteString(fmt.Sprintf("| Active | %d (%d new) |\n", ps.Active, ps.New))
	sb.WriteString(fmt.Sprintf("| Blocked | %d |\n", ps.Blocked))
	sb.WriteString(fmt.Sprintf("| Complete | %d |\n", ps.Complete))
	sb.WriteString(fmt.Sprintf("| Tasks done | %d / %d (%d%%) |\n", ps.TasksCompleted, ps.TasksTotal, ps.OverallPercent))
	sb.WriteString(fmt.Sprintf("| Mean progress | %.1f%% |\n", ps.MeanPercent))
	if top := stats.TopBlockers(3); len(top) > 0 {
		names := make([]string, len(top))
		for i, id := range top {
			names[i] = "`" + string(id) + "`"
		}
		sb.WriteString(fmt.Sprintf("| Top blockers | %s |\n", strings.Join(names, ", ")))
	}
	sb.WriteString("\n")

	if len(opts.Tracks) == 0 {
		sb.WriteString("_No tracks found._\n")
		return sb.String()
	}

	sb.WriteString("## Table of Contents\n\n")
	slugs := make(map[string]int)
	anchors := make([]string, len(opts.Tracks))
	for i, t := range opts.Tracks {
		heading := trackHeadingText(t)
		anchors[i] = uniqueSlug(createSlug(heading), slugs)
		sb.WriteString(fmt.Sprintf("- [%s %s](#%s)\n", statusEmoji(t), heading, anchors[i]))
	}
	sb.WriteString("\n")

	if stats.EdgeCount > 0 || len(stats.Missing) > 0 {
		sb.WriteString("## Dependency Graph\n\n")
		sb.WriteString("```mermaid\n")
		sb.WriteString(GenerateMermaidGraph(opts.Tracks))
		sb.WriteString("```\n\n")
		if stats.HasCycles() {
			sb.WriteString("> ⚠ Dependency cycles:")
			for _, c := range stats.Cycles {
				ids := make([]string, len(c))
				for i, id := range c {
					ids[i] = string(id)
				}
				sb.WriteString(" `" + strings.Join(ids, " → ") + "`")
			}
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString("---\n\n")
	for i, t := range opts.Tracks {
		writeTrackSection(&sb, t, a)
		if i < len(opts.Tracks)-1 {
			sb.WriteString("---\n\n")
		}
	}
	return sb.String()
}

func writeTrackSection(sb *strings.Builder, t model.Track, a *analysis.Analyzer) {
	sb.WriteString(fmt.Sprintf("## %s %s\n\n", statusEmoji(t), trackHeadingText(t)))

	sb.WriteString("| Property | Value |\n|----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| **Status** | %s |\n", statusLabel(t)))
	sb.WriteString(fmt.Sprintf("| **Progress** | %d/%d tasks (%d%%) |\n", t.TasksCompleted, t.TasksTotal, t.ProgressPercent))
	sb.WriteString(fmt.Sprintf("| **Priority** | %s |\n", t.Priority))
	if t.Type != model.TypeOther {
		sb.WriteString(fmt.Sprintf("| **Type** | %s |\n", t.Type))
	}
	if p := t.CurrentPhase(); p != "" {
		sb.WriteString(fmt.Sprintf("| **Current phase** | %s |\n", escapeCell(p)))
	}
	if t.Branch != "" {
		sb.WriteString(fmt.Sprintf("| **Branch** | `%s` |\n", t.Branch))
	}
	if len(t.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("| **Tags** | %s |\n", strings.Join(t.Tags, ", ")))
	}
	if !t.LastUpdated.IsZero() {
		sb.WriteString(fmt.Sprintf("| **Last updated** | %s |\n", t.LastUpdated.Format("2006-01-02 15:04")))
	}
	if len(t.Dependencies) > 0 {
		sb.WriteString(fmt.Sprintf("| **Depends on** | %s |\n", joinIDs(t.Dependencies)))
	}
	if deps := a.Dependents(t.ID); len(deps) > 0 {
		sb.WriteString(fmt.Sprintf("| **Unblocks** | %s |\n", joinIDs(deps)))
	}
	sb.WriteString("\n")

	if d := strings.TrimSpace(t.Description); d != "" {
		sb.WriteString(d + "\n\n")
	}

	for _, p := range t.Phases {
		total, done := p.Counts()
		sb.WriteString(fmt.Sprintf("### %s %s (%d/%d)\n\n", phaseEmoji(p.Status), p.Name, done, total))
		if len(p.Tasks) == 0 {
			sb.WriteString("_No tasks._\n\n")
			continue
		}
		for _, task := range p.Tasks {
			writeTask(sb, task, 0)
		}
		sb.WriteString("\n")
	}
	for _, w := range t.Warnings {
		sb.WriteString("> ⚠ " + w + "\n")
	}
	if len(t.Warnings) > 0 {
		sb.WriteString("\n")
	}
}

func writeTask(sb *strings.Builder, t model.Task, depth int) {
	box := "[ ]"
	if t.Checked {
		box = "[x]"
	}
	sb.WriteString(fmt.Sprintf("%s- %s %s\n", strings.Repeat("  ", depth), box, t.Text))
	for _, st := range t.Subtasks {
		writeTask(sb, st, depth+1)
	}
}

// GenerateMermaidGraph draws an edge from each dependency to the tracks it
// unblocks. Dependencies on unknown tracks are drawn dashed.
func GenerateMermaidGraph(tracks []model.Track) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    classDef active fill:#8ec07c,stroke:#333,color:#000\n")
	sb.WriteString("    classDef newtrack fill:#83a598,stroke:#333,color:#000\n")
	sb.WriteString("    classDef blocked fill:#fb4934,stroke:#333,color:#000\n")
	sb.WriteString("    classDef complete fill:#b8bb26,stroke:#333,color:#000\n")
	sb.WriteString("    classDef unknown fill:#a89984,stroke:#333,color:#000\n")
	sb.WriteString("    classDef missing fill:#fff,stroke:#999,stroke-dasharray:4 2,color:#666\n\n")

	// Distinct ids can collapse to the same mermaid id after sanitizing.
	safe := make(map[model.TrackID]string, len(tracks))
	used := make(map[string]int)
	nodeID := func(id model.TrackID) string {
		if s, ok := safe[id]; ok {
			return s
		}
		s := uniqueSlug(sanitizeMermaidID(string(id)), used)
		safe[id] = s
		return s
	}

	known := make(map[model.TrackID]bool, len(tracks))
	for _, t := range tracks {
		known[t.ID] = true
		label := sanitizeMermaidText(fmt.Sprintf("%s %d%%", t.Title, t.ProgressPercent))
		sb.WriteString(fmt.Sprintf("    %s[\"%s<br/>%s\"]\n", nodeID(t.ID), sanitizeMermaidText(string(t.ID)), label))
		sb.WriteString(fmt.Sprintf("    class %s %s\n", nodeID(t.ID), mermaidClass(t)))
	}

	var missing []model.TrackID
	for _, t := range tracks {
		for _, dep := range t.Dependencies {
			if known[dep] || slices.Contains(missing, dep) {
				continue
			}
			missing = append(missing, dep)
		}
	}
	slices.Sort(missing)
	for _, id := range missing {
		sb.WriteString(fmt.Sprintf("    %s[\"%s (missing)\"]\n", nodeID(id), sanitizeMermaidText(string(id))))
		sb.WriteString(fmt.Sprintf("    class %s missing\n", nodeID(id)))
	}

	sb.WriteString("\n")
	for _, t := range tracks {
		for _, dep := range t.Dependencies {
			arrow := "==>"
			if !known[dep] {
				arrow = "-.->"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", nodeID(dep), arrow, nodeID(t.ID)))
		}
	}
	return sb.String()
}

// SaveMarkdown writes GenerateMarkdown's output to opts.Path.
func SaveMarkdown(opts Options) error {
	if err := os.WriteFile(opts.Path, []byte(GenerateMarkdown(opts)), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

func trackHeadingText(t model.Track) string {
	if t.Title == "" || t.Title == string(t.ID) {
		return string(t.ID)
	}
	return fmt.Sprintf("%s: %s", t.ID, t.Title)
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "section"
	}
	if count, ok := counts[base]; ok {
		count++
		counts[base] = count
		return fmt.Sprintf("%s-%d", base, count)
	}
	counts[base] = 0
	return base
}

func createSlug(text string) string {
	slug := strings.ToLower(text)
	slug = slugNonAlphanumericRegex.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func isNew(t model.Track) bool {
	return t.Status == model.StatusActive && t.TasksCompleted == 0
}

func statusLabel(t model.Track) string {
	if isNew(t) {
		return "NEW"
	}
	return strings.ToUpper(t.Status.String())
}

func statusEmoji(t model.Track) string {
	switch {
	case isNew(t):
		return "🆕"
	case t.Status == model.StatusActive:
		return "🔄"
	case t.Status == model.StatusBlocked:
		return "⛔"
	case t.Status == model.StatusComplete:
		return "✅"
	default:
		return "❔"
	}
}

func mermaidClass(t model.Track) string {
	switch {
	case isNew(t):
		return "newtrack"
	case t.Status == model.StatusActive:
		return "active"
	case t.Status == model.StatusBlocked:
		return "blocked"
	case t.Status == model.StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

func phaseEmoji(s model.PhaseStatus) string {
	switch s {
	case model.PhaseComplete:
		return "✅"
	case model.PhaseActive:
		return "🔄"
	case model.PhaseBlocked:
		return "⛔"
	default:
		return "⏳"
	}
}

func joinIDs(ids []model.TrackID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "`" + string(id) + "`"
	}
	return strings.Join(parts, ", ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
