package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/conductor-dashboard/pkg/config"
	"github.com/vanderheijden86/conductor-dashboard/pkg/ui"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
		Long: `Configuration is read from ` + displayPath(config.ConfigPath()) + `, then
` + config.ProjectFile + ` in the working directory, then
CONDUCTOR_DASHBOARD_* environment variables (e.g. CONDUCTOR_DASHBOARD_UI_THEME=nord).`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCmd(app))
	cmd.AddCommand(newConfigPathCmd(app))
	cmd.AddCommand(newConfigShowCmd(app))
	return cmd
}

func (a *App) configTarget() string {
	if a.ConfigFile != "" {
		return a.ConfigFile
	}
	return config.ConfigPath()
}

func newConfigPathCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file locations",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := app.configTarget()
			if path == "" {
				return errors.New("cannot determine config directory (no $HOME or $XDG_CONFIG_HOME)")
			}
			fmt.Fprintln(out, path)
			if _, err := os.Stat(config.ProjectFile); err == nil {
				fmt.Fprintln(out, config.ProjectFile)
			}
			return nil
		},
	}
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCmd(app *App) *cobra.Command {
	var useDefaults, force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file, interactively or with defaults",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.configTarget()
			if path == "" {
				return errors.New("cannot determine config directory (no $HOME or $XDG_CONFIG_HOME)")
			}
			if _, err := os.Stat(path); err == nil && !force {
				return usageErrorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", path, err)
			}

			cfg := config.DefaultConfig()
			if !useDefaults {
				if err := runConfigForm(&cfg); err != nil {
					return err
				}
			}
			cfg.Normalize()

			if err := config.SaveTo(cfg, path); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), "✓", "Wrote "+path, color.FgGreen)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "Write the defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// newForm creates a form with appropriate settings based on TTY detection.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		form = form.WithAccessible(true)
	}
	return form
}

func runConfigForm(cfg *config.Config) error {
	themeOpts := make([]huh.Option[string], 0, len(ui.Palettes))
	for _, name := range ui.ThemeNames() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}
	debounce := cfg.Watch.Debounce.String()

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Conductor directory").
				Description("Where conductor keeps tracks.md and tracks/").
				Value(&cfg.ConductorDir).
				Placeholder("./conductor"),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&cfg.UI.Theme),
			huh.NewConfirm().
				Title("Enable mouse?").
				Description("Click to select, wheel to scroll").
				Value(&cfg.UI.Mouse),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Debounce window").
				Description("Changes within this window are coalesced").
				Value(&debounce).
				Validate(func(s string) error {
					d, err := time.ParseDuration(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					if d <= 0 {
						return errors.New("must be positive")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Always poll instead of using file notifications?").
				Description("Useful on network filesystems").
				Value(&cfg.Watch.ForcePoll),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	d, err := time.ParseDuration(strings.TrimSpace(debounce))
	if err != nil {
		return fmt.Errorf("debounce: %w", err)
	}
	cfg.Watch.Debounce = d
	return nil
}
