package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/conductor-dashboard/pkg/analysis"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

type statsReport struct {
	Progress     analysis.ProgressStats            `json:"progress"`
	Dependencies int                               `json:"dependencies"`
	TopBlockers  []model.TrackID                   `json:"top_blockers,omitempty"`
	Order        []model.TrackID                   `json:"order,omitempty"`
	Cycles       [][]model.TrackID                 `json:"cycles,omitempty"`
	Missing      map[model.TrackID][]model.TrackID `json:"missing,omitempty"`
}

func newStatsCmd(app *App) *cobra.Command {
	var asJSON bool
	var top int

	cmd := &cobra.Command{
		Use:     "stats",
		Aliases: []string{"summary"},
		Short:   "Summarize progress and track dependencies",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _, err := app.viewOptions()
			if err != nil {
				return err
			}
			_, tracks, err := app.loadTracks(cmd.Context())
			if err != nil {
				return err
			}
			var selected []model.Track
			for _, t := range tracks {
				if filter.Matches(t.Status) {
					selected = append(selected, t)
				}
			}

			g := analysis.NewAnalyzer(selected).Analyze()
			r := statsReport{
				Progress:     analysis.Progress(selected),
				Dependencies: g.EdgeCount,
				TopBlockers:  g.TopBlockers(top),
				Order:        g.TopologicalOrder,
				Cycles:       g.Cycles,
				Missing:      g.Missing,
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			printStats(cmd.OutOrStdout(), r)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().IntVar(&top, "top", 3, "Number of top blockers to list")
	return cmd
}

func printStats(w io.Writer, r statsReport) {
	p := r.Progress
	bold := color.New(color.Bold)

	fmt.Fprintln(w, bold.Sprint("Tracks"))
	fmt.Fprintf(w, "  total %d   active %d (%d new)   blocked %d   complete %d\n",
		p.Tracks, p.Active, p.New, p.Blocked, p.Complete)
	fmt.Fprintf(w, "  tasks %d/%d  %s %d%%\n",
		p.TasksCompleted, p.TasksTotal, progressBar(p.OverallPercent, 20), p.OverallPercent)
	if p.Tracks > 0 {
		fmt.Fprintf(w, "  per track: mean %.1f%%  median %.1f%%  stddev %.1f\n",
			p.MeanPercent, p.MedianPercent, p.StdDevPercent)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, bold.Sprint("Dependencies"))
	if r.Dependencies == 0 && len(r.Missing) == 0 && len(r.Cycles) == 0 {
		fmt.Fprintln(w, "  none declared")
		return
	}
	fmt.Fprintf(w, "  %d edges\n", r.Dependencies)
	if len(r.TopBlockers) > 0 {
		fmt.Fprintf(w, "  top blockers: %s\n", joinTrackIDs(r.TopBlockers))
	}
	if len(r.Order) > 0 {
		fmt.Fprintf(w, "  order: %s\n", strings.ReplaceAll(joinTrackIDs(r.Order), ", ", " → "))
	}
	for _, c := range r.Cycles {
		printStatus(w, "⟳", "cycle: "+strings.ReplaceAll(joinTrackIDs(c), ", ", " → "), color.FgRed)
	}
	for _, id := range sortedKeys(r.Missing) {
		printStatus(w, "?", fmt.Sprintf("%s depends on unknown %s", id, joinTrackIDs(r.Missing[id])), color.FgYellow)
	}
}

func sortedKeys(m map[model.TrackID][]model.TrackID) []model.TrackID {
	keys := make([]model.TrackID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
