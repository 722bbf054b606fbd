package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/conductor-dashboard/pkg/analysis"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

type trackDetail struct {
	model.Track
	CurrentPhase string          `json:"current_phase,omitempty"`
	Dependents   []model.TrackID `json:"dependents,omitempty"`
	OpenBlockers []model.TrackID `json:"open_blockers,omitempty"`
}

func newShowCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <track-id>",
		Short: "Print one track with its phases and tasks",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tracks, err := app.loadTracks(cmd.Context())
			if err != nil {
				return err
			}
			t, ok := findTrack(tracks, args[0])
			if !ok {
				return fmt.Errorf("track %q not found", args[0])
			}
			a := analysis.NewAnalyzer(tracks)
			d := trackDetail{
				Track:        t,
				CurrentPhase: t.CurrentPhase(),
				Dependents:   a.Dependents(t.ID),
				OpenBlockers: a.OpenBlockers(t.ID),
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			printTrackDetail(cmd.OutOrStdout(), d, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printTrackDetail(w io.Writer, d trackDetail, now time.Time) {
	t := d.Track
	bold := color.New(color.Bold)
	faint := color.New(color.FgHiBlack)

	fmt.Fprintf(w, "%s  %s\n", bold.Sprint(t.Title), faint.Sprint(t.ID))
	fmt.Fprintf(w, "%s  %s %d%%  (%d/%d tasks)\n",
		statusColor(t).Sprint(statusWord(t)),
		statusColor(t).Sprint(progressBar(t.ProgressPercent, 20)),
		t.ProgressPercent, t.TasksCompleted, t.TasksTotal)

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-13s %s\n", name+":", value)
		}
	}
	field("Priority", t.Priority.String())
	if t.Type != model.TypeOther {
		field("Type", t.Type.String())
	}
	field("Phase", d.CurrentPhase)
	field("Branch", t.Branch)
	field("Tags", strings.Join(t.Tags, ", "))
	field("Updated", relTime(t.LastUpdated, now))
	field("Depends on", joinTrackIDs(t.Dependencies))
	field("Unblocks", joinTrackIDs(d.Dependents))
	if len(d.OpenBlockers) > 0 {
		printStatus(w, "⚠", "Blocked by: "+joinTrackIDs(d.OpenBlockers), color.FgRed)
	}

	if desc := strings.TrimSpace(t.Description); desc != "" {
		fmt.Fprintf(w, "\n%s\n", desc)
	}

	for _, p := range t.Phases {
		total, done := p.Counts()
		fmt.Fprintf(w, "\n%s %s %s\n", phaseIcon(p.Status), bold.Sprint(p.Name), faint.Sprintf("%d/%d", done, total))
		for _, task := range p.Tasks {
			printTask(w, task, 1)
		}
	}

	for _, warn := range t.Warnings {
		printStatus(w, "⚠", warn, color.FgYellow)
	}
}

func printTask(w io.Writer, t model.Task, depth int) {
	box := "[ ]"
	if t.Checked {
		box = color.New(color.FgGreen).Sprint("[x]")
	}
	fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), box, t.Text)
	for _, st := range t.Subtasks {
		printTask(w, st, depth+1)
	}
}

func phaseIcon(s model.PhaseStatus) string {
	switch s {
	case model.PhaseComplete:
		return "✓"
	case model.PhaseActive:
		return "▶"
	case model.PhaseBlocked:
		return "⊘"
	default:
		return "○"
	}
}

func joinTrackIDs(ids []model.TrackID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
