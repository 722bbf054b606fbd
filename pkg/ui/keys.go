package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard's key bindings. The help overlay and the status
// bar are both rendered from it.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Home     key.Binding
	End      key.Binding
	Enter    key.Binding
	Escape   key.Binding
	Focus    key.Binding
	Filter   key.Binding
	Sort     key.Binding
	Search   key.Binding
	Refresh  key.Binding
	Theme    key.Binding
	ScrollDn key.Binding
	ScrollUp key.Binding
	PageDn   key.Binding
	PageUp   key.Binding
	Shrink   key.Binding
	Grow     key.Binding
	Copy     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "Move selection up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "Move selection down")),
		Home:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("Home/g", "First track")),
		End:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("End/G", "Last track")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "Maximise detail panel")),
		Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "Return to split view / close")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "Switch list/detail focus")),
		Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "Cycle filter (All → Active → Blocked → Done)")),
		Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Cycle sort (Recent ↔ Progress)")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "Open search")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Force refresh")),
		Theme:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "Cycle theme")),
		ScrollDn: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "Scroll detail down")),
		ScrollUp: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "Scroll detail up")),
		PageDn:   key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("^d", "Page detail down")),
		PageUp:   key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("^u", "Page detail up")),
		Shrink:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "Shrink list pane")),
		Grow:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "Grow list pane")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "Copy track id")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "Toggle this help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "Quit")),
	}
}

// ShortHelp implements help.KeyMap for the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		withHelp(k.Down, "↑↓", "Navigate"),
		withHelp(k.Enter, "Enter", "Expand"),
		withHelp(k.Filter, "f", "Filter"),
		withHelp(k.Sort, "s", "Sort"),
		withHelp(k.Search, "/", "Search"),
		withHelp(k.Theme, "t", "Theme"),
		withHelp(k.Help, "?", "Help"),
		withHelp(k.Quit, "q", "Quit"),
	}
}

// FullHelp implements help.KeyMap for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Home, k.End, k.Enter, k.Escape, k.Focus},
		{k.Filter, k.Sort, k.Search, k.Refresh, k.Theme},
		{k.ScrollDn, k.ScrollUp, k.PageDn, k.PageUp, k.Shrink, k.Grow},
		{k.Copy, k.Help, k.Quit},
	}
}

func withHelp(b key.Binding, keys, desc string) key.Binding {
	b.SetHelp(keys, desc)
	return b
}
