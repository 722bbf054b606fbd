// Package config handles loading and saving conductor-dashboard configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/conductor-dashboard/config.yaml
//
// Load layers, lowest to highest: built-in defaults, the user config file,
// a project-level .conductor-dashboard.yaml in the working directory, and
// CONDUCTOR_DASHBOARD_* environment variables (e.g.
// CONDUCTOR_DASHBOARD_UI_THEME=nord).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName = "conductor-dashboard"
	// ProjectFile is the per-directory override file.
	ProjectFile = ".conductor-dashboard.yaml"
	envPrefix   = "CONDUCTOR_DASHBOARD"
)

// UIConfig holds UI preference settings.
type UIConfig struct {
	Theme            string  `yaml:"theme,omitempty" mapstructure:"theme"`
	SplitRatio       float64 `yaml:"split_ratio,omitempty" mapstructure:"split_ratio"` // list pane share, 0..1
	SplitMin         float64 `yaml:"split_min,omitempty" mapstructure:"split_min"`
	SplitMax         float64 `yaml:"split_max,omitempty" mapstructure:"split_max"`
	SplitStep        float64 `yaml:"split_step,omitempty" mapstructure:"split_step"`
	DetailScrollStep int     `yaml:"detail_scroll_step,omitempty" mapstructure:"detail_scroll_step"`
	Mouse            bool    `yaml:"mouse" mapstructure:"mouse"`
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	Debounce     time.Duration `yaml:"debounce,omitempty" mapstructure:"debounce"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty" mapstructure:"poll_interval"`
	ForcePoll    bool          `yaml:"force_poll,omitempty" mapstructure:"force_poll"`
}

// Config is the top-level configuration.
type Config struct {
	ConductorDir string        `yaml:"conductor_dir,omitempty" mapstructure:"conductor_dir"`
	UI           UIConfig      `yaml:"ui,omitempty" mapstructure:"ui"`
	Watch        WatchConfig   `yaml:"watch,omitempty" mapstructure:"watch"`
	Tick         time.Duration `yaml:"tick,omitempty" mapstructure:"tick"`
	StatusTTL    time.Duration `yaml:"status_ttl,omitempty" mapstructure:"status_ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConductorDir: "./conductor",
		UI: UIConfig{
			Theme:            "mako",
			SplitRatio:       0.45,
			SplitMin:         0.2,
			SplitMax:         0.8,
			SplitStep:        0.05,
			DetailScrollStep: 5,
			Mouse:            true,
		},
		Watch: WatchConfig{
			Debounce:     300 * time.Millisecond,
			PollInterval: 2 * time.Second,
		},
		Tick:      time.Second,
		StatusTTL: 10 * time.Second,
	}
}

// Normalize replaces out-of-range values with defaults and clamps the split
// ratio into [SplitMin, SplitMax].
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.UI.SplitMin <= 0 || c.UI.SplitMin >= 1 {
		c.UI.SplitMin = def.UI.SplitMin
	}
	if c.UI.SplitMax <= 0 || c.UI.SplitMax >= 1 {
		c.UI.SplitMax = def.UI.SplitMax
	}
	if c.UI.SplitMin > c.UI.SplitMax {
		c.UI.SplitMin, c.UI.SplitMax = c.UI.SplitMax, c.UI.SplitMin
	}
	if c.UI.SplitStep <= 0 || c.UI.SplitStep >= 0.5 {
		c.UI.SplitStep = def.UI.SplitStep
	}
	if c.UI.SplitRatio == 0 {
		c.UI.SplitRatio = def.UI.SplitRatio
	}
	c.UI.SplitRatio = min(max(c.UI.SplitRatio, c.UI.SplitMin), c.UI.SplitMax)
	if c.UI.DetailScrollStep <= 0 {
		c.UI.DetailScrollStep = def.UI.DetailScrollStep
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
	if c.Watch.PollInterval <= 0 {
		c.Watch.PollInterval = def.Watch.PollInterval
	}
	if c.Tick <= 0 {
		c.Tick = def.Tick
	}
	if c.StatusTTL <= 0 {
		c.StatusTTL = def.StatusTTL
	}
	if c.ConductorDir == "" {
		c.ConductorDir = def.ConductorDir
	}
	c.ConductorDir = expandHome(c.ConductorDir)
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the layered configuration. An explicit path replaces the user
// config file; a missing explicit file is an error, a missing default one
// is not.
func Load(explicit string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	switch {
	case explicit != "":
		v.SetConfigFile(expandHome(explicit))
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", explicit, err)
		}
	case ConfigDir() != "":
		v.SetConfigName("config")
		v.AddConfigPath(ConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading user config: %w", err)
			}
		}
	}

	if _, err := os.Stat(ProjectFile); err == nil {
		pv := viper.New()
		pv.SetConfigFile(ProjectFile)
		pv.SetConfigType("yaml")
		if err := pv.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", ProjectFile, err)
		}
		if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
			return Config{}, fmt.Errorf("merging project config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("conductor_dir", d.ConductorDir)
	v.SetDefault("ui.theme", d.UI.Theme)
	v.SetDefault("ui.split_ratio", d.UI.SplitRatio)
	v.SetDefault("ui.split_min", d.UI.SplitMin)
	v.SetDefault("ui.split_max", d.UI.SplitMax)
	v.SetDefault("ui.split_step", d.UI.SplitStep)
	v.SetDefault("ui.detail_scroll_step", d.UI.DetailScrollStep)
	v.SetDefault("ui.mouse", d.UI.Mouse)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.poll_interval", d.Watch.PollInterval)
	v.SetDefault("watch.force_poll", d.Watch.ForcePoll)
	v.SetDefault("tick", d.Tick)
	v.SetDefault("status_ttl", d.StatusTTL)
}

// LoadFrom reads a single config file without layering.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
