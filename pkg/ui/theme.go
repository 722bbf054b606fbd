package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background instead of a down-converted approximation.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Palette is a static color table. Every theme is one of these; there is no
// runtime theme loading.
type Palette struct {
	Name string

	BarBg     string // title and status bars
	TextOnBar string
	Accent    string
	Warning   string
	Success   string
	Error     string
	Border    string
	Surface   string // overlay background
	Text      string
	Subtext   string

	ProgressDone    string
	ProgressActive  string
	ProgressNew     string
	ProgressBlocked string
}

// Mako brand colors.
const (
	makoNavy          = "#0E1E3F"
	makoBlue          = "#5471DF"
	makoGold          = "#B28C54"
	makoLightBlue     = "#DBE1F5"
	makoSuccess       = "#2C5F2D"
	makoError         = "#B85042"
	makoSurface       = "#FFFFFF"
	makoBorder        = "#D1D9E8"
	makoTextPrimary   = "#2D3748"
	makoTextSecondary = "#6B7A99"
)

// Palettes is the closed set of themes, in the order `t` cycles through them.
var Palettes = []Palette{
	{
		Name:  "mako",
		BarBg: makoNavy, TextOnBar: "#FFFFFF",
		Accent: makoBlue, Warning: makoGold, Success: makoSuccess, Error: makoError,
		Border: makoBorder, Surface: makoSurface,
		Text: makoTextPrimary, Subtext: makoTextSecondary,
		ProgressDone: makoSuccess, ProgressActive: makoBlue, ProgressNew: makoLightBlue, ProgressBlocked: makoGold,
	},
	{
		Name:  "midnight",
		BarBg: "#1B2B4B", TextOnBar: "#E6EDF7",
		Accent: "#7AA2F7", Warning: "#E0AF68", Success: "#9ECE6A", Error: "#F7768E",
		Border: "#3B4261", Surface: "#16161E",
		Text: "#C0CAF5", Subtext: "#787C99",
		ProgressDone: "#9ECE6A", ProgressActive: "#7AA2F7", ProgressNew: "#3B4261", ProgressBlocked: "#E0AF68",
	},
	{
		Name:  "dracula",
		BarBg: "#44475A", TextOnBar: "#F8F8F2",
		Accent: "#BD93F9", Warning: "#FFB86C", Success: "#50FA7B", Error: "#FF5555",
		Border: "#6272A4", Surface: "#282A36",
		Text: "#F8F8F2", Subtext: "#6272A4",
		ProgressDone: "#50FA7B", ProgressActive: "#8BE9FD", ProgressNew: "#44475A", ProgressBlocked: "#FFB86C",
	},
	{
		Name:  "solarized",
		BarBg: "#073642", TextOnBar: "#EEE8D5",
		Accent: "#268BD2", Warning: "#B58900", Success: "#859900", Error: "#DC322F",
		Border: "#586E75", Surface: "#002B36",
		Text: "#839496", Subtext: "#586E75",
		ProgressDone: "#859900", ProgressActive: "#268BD2", ProgressNew: "#073642", ProgressBlocked: "#B58900",
	},
	{
		Name:  "nord",
		BarBg: "#3B4252", TextOnBar: "#ECEFF4",
		Accent: "#88C0D0", Warning: "#EBCB8B", Success: "#A3BE8C", Error: "#BF616A",
		Border: "#4C566A", Surface: "#2E3440",
		Text: "#D8DEE9", Subtext: "#81A1C1",
		ProgressDone: "#A3BE8C", ProgressActive: "#88C0D0", ProgressNew: "#4C566A", ProgressBlocked: "#EBCB8B",
	},
	{
		Name:  "mono",
		BarBg: "#303030", TextOnBar: "#EEEEEE",
		Accent: "#BBBBBB", Warning: "#999999", Success: "#DDDDDD", Error: "#FFFFFF",
		Border: "#585858", Surface: "#1C1C1C",
		Text: "#D0D0D0", Subtext: "#808080",
		ProgressDone: "#DDDDDD", ProgressActive: "#AAAAAA", ProgressNew: "#444444", ProgressBlocked: "#777777",
	},
}

// ThemeNames lists the palette names in cycle order.
func ThemeNames() []string {
	names := make([]string, len(Palettes))
	for i, p := range Palettes {
		names[i] = p.Name
	}
	return names
}

// ThemeIndex returns the index of the named palette, ignoring case. Unknown
// names fall back to the first palette and ok is false.
func ThemeIndex(name string) (idx int, ok bool) {
	for i, p := range Palettes {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return i, true
		}
	}
	return 0, false
}

// Theme is a palette resolved against a renderer, with the styles the views
// use pre-computed so rendering a frame allocates no new styles.
type Theme struct {
	Renderer *lipgloss.Renderer
	Name     string

	Accent  lipgloss.TerminalColor
	Warning lipgloss.TerminalColor
	Success lipgloss.TerminalColor
	Error   lipgloss.TerminalColor
	Border  lipgloss.TerminalColor
	Subtext lipgloss.TerminalColor

	ProgressDone    lipgloss.TerminalColor
	ProgressActive  lipgloss.TerminalColor
	ProgressNew     lipgloss.TerminalColor
	ProgressBlocked lipgloss.TerminalColor

	Bar        lipgloss.Style
	BarBold    lipgloss.Style
	ErrorBar   lipgloss.Style
	Base       lipgloss.Style
	Bold       lipgloss.Style
	Muted      lipgloss.Style
	MutedBold  lipgloss.Style
	AccentText lipgloss.Style
	AccentBold lipgloss.Style
	WarnText   lipgloss.Style
	WarnBold   lipgloss.Style
	GoodText   lipgloss.Style
	GoodBold   lipgloss.Style
	BadText    lipgloss.Style
	Selected   lipgloss.Style
	Panel      lipgloss.Style
	FocusPanel lipgloss.Style
	Overlay    lipgloss.Style
	SearchBox  lipgloss.Style
}

// NewTheme resolves p against r.
func NewTheme(p Palette, r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,
		Name:     p.Name,

		Accent:  ThemeFg(p.Accent),
		Warning: ThemeFg(p.Warning),
		Success: ThemeFg(p.Success),
		Error:   ThemeFg(p.Error),
		Border:  ThemeFg(p.Border),
		Subtext: ThemeFg(p.Subtext),

		ProgressDone:    ThemeFg(p.ProgressDone),
		ProgressActive:  ThemeFg(p.ProgressActive),
		ProgressNew:     ThemeFg(p.ProgressNew),
		ProgressBlocked: ThemeFg(p.ProgressBlocked),
	}

	barBg := ThemeBg(p.BarBg)
	t.Bar = r.NewStyle().Background(barBg).Foreground(ThemeFg(p.TextOnBar))
	t.BarBold = t.Bar.Bold(true)
	t.ErrorBar = r.NewStyle().Background(ThemeBg(p.Warning)).Foreground(ThemeFg(p.BarBg))

	t.Base = r.NewStyle()
	t.Bold = r.NewStyle().Bold(true)
	t.Muted = r.NewStyle().Foreground(t.Subtext)
	t.MutedBold = t.Muted.Bold(true)
	t.AccentText = r.NewStyle().Foreground(t.Accent)
	t.AccentBold = t.AccentText.Bold(true)
	t.WarnText = r.NewStyle().Foreground(t.Warning)
	t.WarnBold = t.WarnText.Bold(true)
	t.GoodText = r.NewStyle().Foreground(t.Success)
	t.GoodBold = t.GoodText.Bold(true)
	t.BadText = r.NewStyle().Foreground(t.Error)

	t.Selected = r.NewStyle().
		Background(ThemeBg(p.Accent)).
		Foreground(ThemeFg("#FFFFFF")).
		Bold(true)

	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border)
	t.FocusPanel = t.Panel.BorderForeground(t.Accent)

	t.Overlay = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Background(ThemeBg(p.Surface)).
		Padding(0, 1)
	t.SearchBox = r.NewStyle().
		Background(ThemeBg(p.Surface)).
		Foreground(ThemeFg(p.Text))

	return t
}

// Themes resolves every palette against r, in cycle order.
func Themes(r *lipgloss.Renderer) []Theme {
	out := make([]Theme, len(Palettes))
	for i, p := range Palettes {
		out[i] = NewTheme(p, r)
	}
	return out
}

// TestTheme returns the default theme rendered to stdout, for tests.
func TestTheme() Theme {
	return NewTheme(Palettes[0], lipgloss.NewRenderer(os.Stdout))
}
