package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/state"
)

type outstandingTask struct {
	TrackID    model.TrackID `json:"track_id"`
	TrackTitle string        `json:"track_title"`
	model.OpenTask
}

func newTasksCmd(app *App) *cobra.Command {
	var asJSON bool
	var sel trackSelector

	cmd := &cobra.Command{
		Use:   "tasks [track-id]",
		Short: "Print the unchecked tasks of every unfinished track",
		Long: `Print every unchecked task with its track and phase. Complete tracks
are skipped unless named. --filter, --sort, --tag and --priority select the
tracks as they do for list.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("%s takes at most one track id, got %d", cmd.CommandPath(), len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, sortMode, err := app.viewOptions()
			if err != nil {
				return err
			}
			match, err := sel.matcher()
			if err != nil {
				return err
			}
			_, tracks, err := app.loadTracks(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				t, ok := findTrack(tracks, args[0])
				if !ok {
					return fmt.Errorf("track %q not found", args[0])
				}
				tracks = []model.Track{t}
			} else {
				tracks = slices.DeleteFunc(tracks, func(t model.Track) bool {
					return t.Status == model.StatusComplete || !match(t)
				})
				tracks = state.VisibleTracks(tracks, filter, sortMode, "")
			}

			var out []outstandingTask
			for _, t := range tracks {
				for _, ot := range t.OpenTasks() {
					out = append(out, outstandingTask{TrackID: t.ID, TrackTitle: t.Title, OpenTask: ot})
				}
			}
			if asJSON {
				if out == nil {
					out = []outstandingTask{}
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printOutstanding(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	sel.register(cmd)
	return cmd
}

func printOutstanding(w io.Writer, tasks []outstandingTask) {
	if len(tasks) == 0 {
		printStatus(w, "✓", "No outstanding tasks", color.FgGreen)
		return
	}
	bold := color.New(color.Bold)
	faint := color.New(color.FgHiBlack)

	var track model.TrackID
	var phase string
	for i, t := range tasks {
		if i == 0 || t.TrackID != track {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s  %s\n", bold.Sprint(t.TrackTitle), faint.Sprint(t.TrackID))
			track, phase = t.TrackID, ""
		}
		if t.Phase != phase {
			fmt.Fprintf(w, "  %s\n", t.Phase)
			phase = t.Phase
		}
		fmt.Fprintf(w, "%s[ ] %s\n", strings.Repeat("  ", t.Depth+2), t.Text)
	}
	fmt.Fprintf(w, "\n%s\n", faint.Sprintf("%d outstanding", len(tasks)))
}
