package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/conductor-dashboard/pkg/debug"
	"github.com/vanderheijden86/conductor-dashboard/pkg/metrics"
	"github.com/vanderheijden86/conductor-dashboard/pkg/state"
	"github.com/vanderheijden86/conductor-dashboard/pkg/ui"
)

// AutoCloseEnv quits the dashboard after the given number of milliseconds.
// Used by smoke tests.
const AutoCloseEnv = "CONDUCTOR_TUI_AUTOCLOSE_MS"

// isTerminal reports whether f is attached to a terminal.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func runTUI(cmd *cobra.Command, app *App) error {
	filter, sortMode, err := app.viewOptions()
	if err != nil {
		return err
	}
	cfg, err := app.loadConfig()
	if err != nil {
		return err
	}

	themeName := cfg.UI.Theme
	if app.Theme != "" {
		themeName = app.Theme
	}
	themeIdx, ok := ui.ThemeIndex(themeName)
	if !ok && app.Theme != "" {
		return usageErrorf("unknown theme %q (available: %v)", app.Theme, ui.ThemeNames())
	}

	// Without a terminal there is nothing to draw on; print the list instead.
	if f, ok := cmd.OutOrStdout().(*os.File); !ok || !isTerminal(f) {
		debug.Log("stdout is not a terminal, printing list")
		_, tracks, err := app.loadTracks(context.Background())
		if err != nil {
			return err
		}
		return printTrackTable(cmd.OutOrStdout(), state.VisibleTracks(tracks, filter, sortMode, ""), time.Now())
	}

	// The alt screen owns stderr from here on.
	logPath, closeLog, err := debug.OpenLogFile()
	if err != nil {
		return err
	}
	defer closeLog()
	debug.Section("dashboard")
	if metrics.Enabled() {
		defer func() { debug.Log("timings:\n%s", metrics.Report()) }()
	}

	src, w, tracks, err := app.watchAndLoad(context.Background())
	if err != nil {
		return err
	}
	if w != nil {
		defer w.Stop()
	}
	debug.Log("dashboard starting: root=%s tracks=%d log=%s", src.Root(), len(tracks), logPath)

	m := ui.NewModel(tracks, src, w, ui.Options{
		State: state.Options{
			Filter:     filter,
			Sort:       sortMode,
			SplitRatio: cfg.UI.SplitRatio,
			SplitMin:   cfg.UI.SplitMin,
			SplitMax:   cfg.UI.SplitMax,
			SplitStep:  cfg.UI.SplitStep,
			ScrollStep: cfg.UI.DetailScrollStep,
			Theme:      themeIdx,
		},
		NoWatch:      app.NoWatch,
		Tick:         cfg.Tick,
		StatusTTL:    cfg.StatusTTL,
		PollInterval: cfg.Watch.PollInterval,
	})

	if err := runTUIProgram(m, cfg.UI.Mouse); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

func runTUIProgram(m ui.Model, mouse bool) error {
	opts := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	}
	if mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	if v := os.Getenv(AutoCloseEnv); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
