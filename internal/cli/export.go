package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/conductor-dashboard/pkg/export"
	"github.com/vanderheijden86/conductor-dashboard/pkg/state"
)

func newExportCmd(app *App) *cobra.Command {
	var format, out, title string

	formats := make([]string, 0, len(export.Formats()))
	for _, f := range export.Formats() {
		formats = append(formats, string(f))
	}

	cmd := &cobra.Command{
		Use:   "export --out PATH [--format " + strings.Join(formats, "|") + "]",
		Short: "Write a snapshot of the tracks to a file",
		Long: `Write the tracks selected by --filter to a SQLite database, an SVG or PNG
progress chart, or a markdown report. The format defaults to the output
file's extension.`,
		Example: strings.TrimSpace(`
  conductor-dashboard export --out tracks.db
  conductor-dashboard export --out progress.svg --filter active
  conductor-dashboard export --format markdown --out REPORT.md
`),
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return usageErrorf("--out is required")
			}
			var f export.Format
			if format != "" {
				var err error
				if f, err = export.ParseFormat(format); err != nil {
					return usageError{err}
				}
			} else if _, err := export.ParseFormat(filepath.Ext(out)); err != nil {
				return usageErrorf("cannot infer format from %q; pass --format", out)
			}

			filter, sortMode, err := app.viewOptions()
			if err != nil {
				return err
			}
			src, tracks, err := app.loadTracks(cmd.Context())
			if err != nil {
				return err
			}
			selected := state.VisibleTracks(tracks, filter, sortMode, "")

			if err := export.Export(export.Options{
				Path:   out,
				Format: f,
				Title:  title,
				Tracks: selected,
				Root:   src.Root(),
				Now:    time.Now(),
			}); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Exported %d tracks to %s", len(selected), out), color.FgGreen)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format: "+strings.Join(formats, ", ")+" (default from --out extension)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	cmd.Flags().StringVar(&title, "title", "", "Title for charts and reports")
	return cmd
}
