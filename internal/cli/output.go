package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// printStatus writes "<symbol> message" with the symbol colored.
func printStatus(w io.Writer, symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// trackSummary is the --json shape of one list row.
type trackSummary struct {
	ID              model.TrackID   `json:"id"`
	Title           string          `json:"title"`
	Status          model.Status    `json:"status"`
	New             bool            `json:"new"`
	Priority        model.Priority  `json:"priority"`
	Type            model.TrackType `json:"type"`
	TasksCompleted  int             `json:"tasks_completed"`
	TasksTotal      int             `json:"tasks_total"`
	ProgressPercent int             `json:"progress_percent"`
	CurrentPhase    string          `json:"current_phase,omitempty"`
	LastUpdated     time.Time       `json:"last_updated"`
	Dependencies    []model.TrackID `json:"dependencies,omitempty"`
	Warnings        int             `json:"warnings,omitempty"`
}

func summarize(t model.Track) trackSummary {
	return trackSummary{
		ID:              t.ID,
		Title:           t.Title,
		Status:          t.Status,
		New:             isNew(t),
		Priority:        t.Priority,
		Type:            t.Type,
		TasksCompleted:  t.TasksCompleted,
		TasksTotal:      t.TasksTotal,
		ProgressPercent: t.ProgressPercent,
		CurrentPhase:    t.CurrentPhase(),
		LastUpdated:     t.LastUpdated,
		Dependencies:    t.Dependencies,
		Warnings:        len(t.Warnings),
	}
}

func isNew(t model.Track) bool {
	return t.Status == model.StatusActive && t.TasksCompleted == 0
}

func statusWord(t model.Track) string {
	if isNew(t) {
		return "NEW"
	}
	return strings.ToUpper(t.Status.String())
}

func statusColor(t model.Track) *color.Color {
	switch {
	case isNew(t):
		return color.New(color.FgCyan)
	case t.Status == model.StatusActive:
		return color.New(color.FgGreen)
	case t.Status == model.StatusBlocked:
		return color.New(color.FgRed, color.Bold)
	case t.Status == model.StatusComplete:
		return color.New(color.FgHiBlack)
	default:
		return color.New(color.FgYellow)
	}
}

// progressBar renders a fixed-width text bar, e.g. "█████░░░░░".
func progressBar(pct, width int) string {
	pct = min(max(pct, 0), 100)
	filled := (pct*width + 50) / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func relTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// padCell pads or truncates s to exactly width display cells.
func padCell(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

const (
	colStatus   = 9
	colID       = 28
	colTitle    = 36
	colBar      = 10
	colProgress = 14
)

// printTrackTable writes one line per track, colored when w is a terminal
// and color is not disabled.
func printTrackTable(w io.Writer, tracks []model.Track, now time.Time) error {
	if len(tracks) == 0 {
		printStatus(w, "∅", "No tracks match.", color.FgYellow)
		return nil
	}
	header := color.New(color.Bold)
	fmt.Fprintln(w, header.Sprint(
		padCell("STATUS", colStatus)+" "+
			padCell("ID", colID)+" "+
			padCell("TITLE", colTitle)+" "+
			padCell("PROGRESS", colBar+colProgress+1)+" "+
			"UPDATED"))
	for _, t := range tracks {
		progress := fmt.Sprintf("%3d%% %d/%d", t.ProgressPercent, t.TasksCompleted, t.TasksTotal)
		fmt.Fprintf(w, "%s %s %s %s %s %s\n",
			statusColor(t).Sprint(padCell(statusWord(t), colStatus)),
			padCell(string(t.ID), colID),
			padCell(t.Title, colTitle),
			statusColor(t).Sprint(progressBar(t.ProgressPercent, colBar)),
			padCell(progress, colProgress),
			relTime(t.LastUpdated, now),
		)
	}
	return nil
}
