package cli

import (
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/state"
)

func newListCmd(app *App) *cobra.Command {
	var asJSON bool
	var search string
	var sel trackSelector

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the track list",
		Long: `Print the tracks the dashboard would show, after --filter, --search
and --sort are applied. --tag and --priority narrow the list further.`,
		Args: noArgs,
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
			visible := state.VisibleTracks(slices.DeleteFunc(tracks, not(match)), filter, sortMode, search)

			if asJSON {
				out := make([]trackSummary, 0, len(visible))
				for _, t := range visible {
					out = append(out, summarize(t))
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return printTrackTable(cmd.OutOrStdout(), visible, time.Now())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().StringVar(&search, "search", "", "Only tracks whose title or id contains this text (case-insensitive)")
	sel.register(cmd)
	return cmd
}

// trackSelector holds the --tag and --priority flags shared by list and
// tasks.
type trackSelector struct {
	tag      string
	priority string
}

func (s *trackSelector) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.tag, "tag", "", "Only tracks carrying this tag (case-insensitive)")
	cmd.Flags().StringVar(&s.priority, "priority", "", "Only tracks of this priority: critical, high, medium or low")
}

// matcher validates the flags and returns the predicate they describe.
func (s *trackSelector) matcher() (func(model.Track) bool, error) {
	var want model.Priority
	if s.priority != "" {
		p, ok := model.LookupPriority(s.priority)
		if !ok {
			return nil, usageErrorf("unknown priority %q (want critical, high, medium or low)", s.priority)
		}
		want = p
	}
	return func(t model.Track) bool {
		if s.tag != "" && !t.HasTag(s.tag) {
			return false
		}
		return s.priority == "" || t.Priority == want
	}, nil
}

func not(f func(model.Track) bool) func(model.Track) bool {
	return func(t model.Track) bool { return !f(t) }
}

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageErrorf("%s takes no arguments, got %q", cmd.CommandPath(), args)
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("%s requires %d argument(s), got %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

func findTrack(tracks []model.Track, id string) (model.Track, bool) {
	for _, t := range tracks {
		if string(t.ID) == id {
			return t, true
		}
	}
	return model.Track{}, false
}
