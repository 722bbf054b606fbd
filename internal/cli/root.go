// Package cli wires the conductor-dashboard command line: the root command
// launches the dashboard, subcommands print or export the same tracks.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/conductor-dashboard/pkg/config"
	"github.com/vanderheijden86/conductor-dashboard/pkg/debug"
	"github.com/vanderheijden86/conductor-dashboard/pkg/loader"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/state"
	"github.com/vanderheijden86/conductor-dashboard/pkg/watcher"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitSetup = 1
	ExitUsage = 2
)

// App carries flag values and the loaded configuration between commands.
type App struct {
	ConductorDir string
	ConfigFile   string
	Filter       string
	Sort         string
	Theme        string
	NoWatch      bool

	cfg       config.Config
	cfgLoaded bool
}

// usageError marks errors caused by bad invocation rather than bad state.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "conductor-dashboard",
		Short:         "Live terminal dashboard for conductor tracks",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Watch ./conductor
  conductor-dashboard

  # Watch another project, only blocked tracks
  conductor-dashboard --conductor-dir ~/src/app/conductor --filter blocked

  # Scriptable output
  conductor-dashboard list --json
  conductor-dashboard list --tag backend --priority high
  conductor-dashboard tasks
  conductor-dashboard export --out tracks.db
`),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.PersistentFlags().StringVar(&app.ConductorDir, "conductor-dir", "", "Conductor directory to read (default $"+loader.DirEnvVar+", the config file, or ./conductor)")
	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", envOr("CONDUCTOR_DASHBOARD_CONFIG", ""), "Config file (default "+displayPath(config.ConfigPath())+")")
	cmd.PersistentFlags().StringVar(&app.Filter, "filter", "all", "Status filter: all, active, blocked or complete")
	cmd.PersistentFlags().StringVar(&app.Sort, "sort", "updated", "Sort order: updated or progress")
	cmd.Flags().StringVar(&app.Theme, "theme", "", "Initial color theme (overrides ui.theme)")
	cmd.Flags().BoolVar(&app.NoWatch, "no-watch", false, "Disable the file watcher; rescan on the periodic tick only")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	code := exitCode(err)
	if code == ExitUsage {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.Name())
	}
	return code
}

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	// Cobra reports unknown flags and bad flag values without going through
	// the flag error func for some paths.
	if msg := err.Error(); strings.HasPrefix(msg, "unknown flag") || strings.HasPrefix(msg, "unknown shorthand flag") {
		return ExitUsage
	}
	return ExitSetup
}

// loadConfig loads the layered configuration once per invocation.
func (a *App) loadConfig() (config.Config, error) {
	if a.cfgLoaded {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}
	a.cfg, a.cfgLoaded = cfg, true
	debug.Log("config loaded: dir=%s theme=%s", cfg.ConductorDir, cfg.UI.Theme)
	return cfg, nil
}

// conductorDir resolves the directory: the flag wins, then CONDUCTOR_DIR,
// then the config file, then ./conductor.
func (a *App) conductorDir() (string, error) {
	dir := a.ConductorDir
	if dir == "" && os.Getenv(loader.DirEnvVar) == "" {
		cfg, err := a.loadConfig()
		if err != nil {
			return "", err
		}
		dir = cfg.ConductorDir
	}
	return loader.ResolveDir(dir)
}

// viewOptions parses the shared --filter and --sort flags.
func (a *App) viewOptions() (state.FilterMode, state.SortMode, error) {
	f, err := state.ParseFilterMode(a.Filter)
	if err != nil {
		return 0, 0, usageError{err}
	}
	s, err := state.ParseSortMode(a.Sort)
	if err != nil {
		return 0, 0, usageError{err}
	}
	return f, s, nil
}

// scanTracks parses every track of src.
var scanTracks = func(ctx context.Context, src *loader.Source) ([]model.Track, error) {
	return src.LoadAll(ctx)
}

func (a *App) openSource() (*loader.Source, error) {
	root, err := a.conductorDir()
	if err != nil {
		return nil, err
	}
	return loader.Open(root)
}

func (a *App) scan(ctx context.Context, src *loader.Source) ([]model.Track, error) {
	tracks, err := scanTracks(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("loading tracks from %s: %w", src.Root(), err)
	}
	return tracks, nil
}

// loadTracks opens the conductor directory and parses every track.
func (a *App) loadTracks(ctx context.Context) (*loader.Source, []model.Track, error) {
	src, err := a.openSource()
	if err != nil {
		return nil, nil, err
	}
	tracks, err := a.scan(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	return src, tracks, nil
}

// watchAndLoad starts the watcher before the initial scan, so an edit made
// while the scan runs still arrives as a batch. The watcher is nil with
// --no-watch.
func (a *App) watchAndLoad(ctx context.Context) (*loader.Source, *watcher.Watcher, []model.Track, error) {
	src, err := a.openSource()
	if err != nil {
		return nil, nil, nil, err
	}
	var w *watcher.Watcher
	if !a.NoWatch {
		if w, err = a.newWatcher(src.Root()); err != nil {
			return nil, nil, nil, err
		}
	}
	tracks, err := a.scan(ctx, src)
	if err != nil {
		if w != nil {
			w.Stop()
		}
		return nil, nil, nil, err
	}
	return src, w, tracks, nil
}

// newWatcher builds and starts a watcher per the config. A *SetupError is
// returned as is so the caller exits before drawing anything.
func (a *App) newWatcher(root string) (*watcher.Watcher, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	w, err := watcher.NewWatcher(root,
		watcher.WithDebounceDuration(cfg.Watch.Debounce),
		watcher.WithPollInterval(cfg.Watch.PollInterval),
		watcher.WithForcePoll(cfg.Watch.ForcePoll),
	)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func displayPath(p string) string {
	if home, err := os.UserHomeDir(); err == nil && home != "" && strings.HasPrefix(p, home) {
		return "~" + strings.TrimPrefix(p, home)
	}
	return p
}
