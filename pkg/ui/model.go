// Package ui is the dashboard's Bubble Tea program. Model owns the track
// repository and the interaction state; Update is the only place either is
// mutated.
package ui

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/vanderheijden86/conductor-dashboard/pkg/analysis"
	"github.com/vanderheijden86/conductor-dashboard/pkg/debug"
	"github.com/vanderheijden86/conductor-dashboard/pkg/loader"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/parser"
	"github.com/vanderheijden86/conductor-dashboard/pkg/repository"
	"github.com/vanderheijden86/conductor-dashboard/pkg/state"
	"github.com/vanderheijden86/conductor-dashboard/pkg/watcher"
)

// Defaults for Options fields left zero.
const (
	DefaultTick         = time.Second
	DefaultStatusTTL    = 10 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Options configures NewModel.
type Options struct {
	State state.Options

	// NoWatch means there is no watcher; the tick rescans every
	// PollInterval instead.
	NoWatch      bool
	Tick         time.Duration
	StatusTTL    time.Duration
	PollInterval time.Duration

	// Now is the clock. Tests pin it.
	Now func() time.Time
}

// Model is the dashboard's Bubble Tea model.
type Model struct {
	repo    *repository.Repository
	state   state.State
	source  *loader.Source
	watcher *watcher.Watcher
	opts    Options

	keys   KeyMap
	help   help.Model
	zones  *zone.Manager
	themes []Theme

	viewport   viewport.Model
	listOffset int
	md         *glamour.TermRenderer
	mdWidth    int
	specCache  map[specKey]string

	// Dependency graph for the "Unblocks" line, rebuilt when the
	// repository version moves.
	deps        *analysis.Analyzer
	depsVersion uint64
	depsBuilds  int

	width, height int
	ready         bool

	// Tracks waiting to be parsed, one per processNextMsg.
	queue      []model.TrackID
	queued     map[model.TrackID]bool
	removals   []model.TrackID
	processing bool

	now      time.Time
	lastScan time.Time
	degraded bool

	statusMsg     string
	statusIsError bool
	statusAt      time.Time
}

type specKey struct {
	id    model.TrackID
	width int
	src   string
}

// NewModel builds the model around an initial set of tracks. src and w may
// be nil: without a source nothing is ever re-parsed, without a watcher no
// batches arrive.
func NewModel(tracks []model.Track, src *loader.Source, w *watcher.Watcher, opts Options) Model {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = DefaultStatusTTL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	themes := Themes(lipgloss.DefaultRenderer())
	if opts.State.Theme < 0 || opts.State.Theme >= len(themes) {
		opts.State.Theme = 0
	}

	repo := repository.New()
	repo.Replace(tracks)
	st := state.New(opts.State)
	st.Refresh(repo.All())

	now := opts.Now()
	m := Model{
		repo:      repo,
		state:     st,
		source:    src,
		watcher:   w,
		opts:      opts,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		zones:     zone.New(),
		themes:    themes,
		viewport:  viewport.New(0, 0),
		specCache: make(map[specKey]string),
		queued:    make(map[model.TrackID]bool),
		now:       now,
		lastScan:  now,
	}
	m.help.ShortSeparator = "  "
	m.applyThemeToHelp()
	m.syncDetail()
	return m
}

// Init starts the clock and, when watching, the two watcher receives.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		TickCmd(m.opts.Tick),
		WaitForBatchCmd(m.watcher),
		WaitForErrorCmd(m.watcher),
	)
}

// Update is the event loop's single mutation point.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.help.Width = max(msg.Width-len(m.theme().Name)-4, 0)
		m.syncDetail()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case BatchMsg:
		debug.Log("batch: %d changed, %d removed, index=%v full=%v",
			len(msg.Batch.Changed), len(msg.Batch.Removed), msg.Batch.IndexChanged, msg.Batch.Full)
		return m, tea.Batch(m.enqueueBatch(msg.Batch), WaitForBatchCmd(m.watcher))

	case DegradedMsg:
		m.degraded = true
		debug.Warn("watcher degraded: %v", msg.Err)
		interval := m.opts.PollInterval
		if m.watcher != nil {
			interval = m.watcher.PollInterval()
		}
		m.setStatus(fmt.Sprintf("File watching failed, polling every %s: %v", interval, msg.Err), true)
		return m, WaitForErrorCmd(m.watcher)

	case processNextMsg:
		return m, m.processNext()

	case TickMsg:
		return m, m.handleTick(time.Time(msg))
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.state.View() {
	case state.ViewHelp:
		// Any key dismisses help.
		m.state.ToggleHelp()
		return m, nil
	case state.ViewSearch:
		m.handleSearchKey(msg)
		m.syncDetail()
		return m, nil
	}

	var cmd tea.Cmd
	k := m.keys
	detailFocus := m.state.View() == state.ViewDetail
	switch {
	case key.Matches(msg, k.Quit):
		return m.quit()
	case key.Matches(msg, k.Help):
		m.state.ToggleHelp()
	case key.Matches(msg, k.Escape):
		m.state.Escape()
	case key.Matches(msg, k.Enter):
		m.state.Enter()
	case key.Matches(msg, k.Focus):
		m.state.ToggleFocus()
	case key.Matches(msg, k.Up):
		if detailFocus {
			m.state.ScrollDetail(-1)
		} else {
			m.state.MoveSelection(-1)
		}
	case key.Matches(msg, k.Down):
		if detailFocus {
			m.state.ScrollDetail(1)
		} else {
			m.state.MoveSelection(1)
		}
	case key.Matches(msg, k.Home):
		m.state.SelectFirst()
	case key.Matches(msg, k.End):
		m.state.SelectLast()
	case key.Matches(msg, k.Filter):
		m.state.CycleFilter()
	case key.Matches(msg, k.Sort):
		m.state.CycleSort()
	case key.Matches(msg, k.Search):
		m.state.OpenSearch()
	case key.Matches(msg, k.Refresh):
		cmd = m.rescan(false)
	case key.Matches(msg, k.Theme):
		m.state.CycleTheme(len(m.themes))
		m.applyThemeToHelp()
	case key.Matches(msg, k.ScrollDn):
		m.state.ScrollDetail(m.state.ScrollStep())
	case key.Matches(msg, k.ScrollUp):
		m.state.ScrollDetail(-m.state.ScrollStep())
	case key.Matches(msg, k.PageDn):
		m.state.ScrollDetail(max(m.viewport.Height/2, 1))
	case key.Matches(msg, k.PageUp):
		m.state.ScrollDetail(-max(m.viewport.Height/2, 1))
	case key.Matches(msg, k.Shrink):
		m.state.ResizeSplit(-1)
	case key.Matches(msg, k.Grow):
		m.state.ResizeSplit(1)
	case key.Matches(msg, k.Copy):
		m.copySelectedID()
	}
	m.syncDetail()
	return m, cmd
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state.Escape()
	case tea.KeyEnter:
		m.state.SubmitSearch()
	case tea.KeyBackspace:
		m.state.SearchBackspace()
	case tea.KeySpace:
		m.state.SearchInput(' ')
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.state.SearchInput(r)
		}
	}
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.state.View().IsOverlay() || !m.ready {
		return m, nil
	}
	l := m.layout()
	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		delta := 1
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -1
		}
		switch {
		case l.inDetail(msg.X, msg.Y):
			m.state.ScrollDetail(delta * wheelLines)
		case l.inList(msg.X, msg.Y):
			m.state.MoveSelection(delta)
		}
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		if !l.inList(msg.X, msg.Y) {
			return m, nil
		}
		for _, t := range m.state.Visible() {
			if z := m.zones.Get(rowZoneID(t.ID)); z != nil && z.InBounds(msg) {
				m.state.SelectID(t.ID)
				break
			}
		}
	}
	m.syncDetail()
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.watcher != nil {
		m.watcher.Stop()
	}
	return m, tea.Quit
}

func (m *Model) handleTick(t time.Time) tea.Cmd {
	m.now = t
	if m.statusMsg != "" && m.opts.Now().Sub(m.statusAt) >= m.opts.StatusTTL {
		m.statusMsg, m.statusIsError = "", false
	}
	var cmd tea.Cmd
	if m.opts.NoWatch && m.source != nil && t.Sub(m.lastScan) >= m.opts.PollInterval {
		cmd = m.rescan(true)
	}
	// Relative "updated" labels move with the clock.
	m.syncDetail()
	return tea.Batch(cmd, TickCmd(m.opts.Tick))
}

// enqueueBatch queues a watcher batch for incremental processing.
func (m *Model) enqueueBatch(b watcher.Batch) tea.Cmd {
	if b.Full || b.IndexChanged {
		return m.rescan(true)
	}
	for _, id := range b.Removed {
		m.remove(id)
	}
	for _, id := range b.Changed {
		m.enqueue(id)
	}
	return m.kick()
}

// enqueue queues a parse of id. A newer change supersedes a pending removal:
// the parse decides whether the track still exists.
func (m *Model) enqueue(id model.TrackID) {
	m.removals = slices.DeleteFunc(m.removals, func(r model.TrackID) bool { return r == id })
	if m.queued[id] {
		return
	}
	m.queued[id] = true
	m.queue = append(m.queue, id)
}

// remove queues the removal of id, dropping any parse queued before it.
func (m *Model) remove(id model.TrackID) {
	m.dequeue(id)
	if !slices.Contains(m.removals, id) {
		m.removals = append(m.removals, id)
	}
}

// rescan re-reads the index and queues every track on disk, plus removals
// for tracks no longer there. It bypasses the watcher's debounce.
func (m *Model) rescan(quiet bool) tea.Cmd {
	m.lastScan = m.now
	if m.source == nil {
		return nil
	}
	m.source.Refresh()
	ids, err := m.source.ScanIDs()
	if err != nil {
		debug.Warn("rescan: %v", err)
		m.setStatus(fmt.Sprintf("Rescan failed: %v", err), true)
		return nil
	}
	onDisk := make(map[model.TrackID]bool, len(ids))
	for _, id := range ids {
		onDisk[id] = true
		m.enqueue(id)
	}
	for _, id := range m.repo.IDs() {
		if !onDisk[id] {
			m.remove(id)
		}
	}
	if !quiet {
		m.setStatus(fmt.Sprintf("↻ Rescanning %d tracks", len(ids)), false)
	}
	return m.kick()
}

// kick schedules a processNextMsg unless one is already in flight.
func (m *Model) kick() tea.Cmd {
	if m.processing || (len(m.queue) == 0 && len(m.removals) == 0) {
		return nil
	}
	m.processing = true
	return processNextCmd
}

// processNext does one unit of queued work: all pending removals at once, or
// one track parse. It reschedules itself while work remains so input
// messages interleave between parses.
func (m *Model) processNext() tea.Cmd {
	switch {
	case len(m.removals) > 0:
		removed := m.removals
		m.removals = nil
		m.apply(m.repo.Merge(nil, removed))

	case len(m.queue) > 0:
		id := m.queue[0]
		m.queue = m.queue[1:]
		delete(m.queued, id)
		if m.source != nil {
			t, err := m.source.Parse(id)
			switch {
			case errors.Is(err, parser.ErrTrackGone):
				m.apply(m.repo.Merge(nil, []model.TrackID{id}))
			case err != nil:
				debug.Warn("parse %s: %v", id, err)
				m.setStatus(fmt.Sprintf("Could not read %s: %v", id, err), true)
			default:
				m.apply(m.repo.Merge([]model.Track{t}, nil))
			}
		}
	}

	if len(m.queue) > 0 || len(m.removals) > 0 {
		return processNextCmd
	}
	m.processing = false
	return nil
}

func (m *Model) dequeue(id model.TrackID) {
	if !m.queued[id] {
		return
	}
	delete(m.queued, id)
	for i, q := range m.queue {
		if q == id {
			m.queue = append(m.queue[:i:i], m.queue[i+1:]...)
			break
		}
	}
}

// apply pushes a non-empty merge result through the visible-list pipeline.
func (m *Model) apply(d repository.Diff) {
	if d.Empty() {
		return
	}
	debug.Log("merge: %s", d.Summary())
	debug.LogIf(len(d.StatusChanges) > 0, "status moves: %v", d.StatusChanges)
	for _, id := range d.Touched() {
		m.forgetSpec(id)
	}
	m.state.Refresh(m.repo.All())
	if len(d.StatusChanges) > 0 {
		m.setStatus(d.Summary(), false)
	}
	m.syncDetail()
}

func (m *Model) copySelectedID() {
	t, ok := m.state.Selected()
	if !ok {
		return
	}
	if err := clipboard.WriteAll(string(t.ID)); err != nil {
		m.setStatus(fmt.Sprintf("❌ Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("📋 Copied %s to clipboard", t.ID), false)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
	m.statusAt = m.opts.Now()
}

func (m *Model) theme() Theme {
	return m.themes[m.state.Theme()%len(m.themes)]
}

func (m *Model) applyThemeToHelp() {
	th := m.theme()
	m.help.Styles.ShortKey = th.BarBold
	m.help.Styles.ShortDesc = th.Bar
	m.help.Styles.ShortSeparator = th.Bar
	m.help.Styles.Ellipsis = th.Bar
}

// State returns a copy of the interaction state.
func (m Model) State() *state.State {
	s := m.state
	return &s
}

// Repository returns the track repository.
func (m Model) Repository() *repository.Repository { return m.repo }

// StatusMessage returns the transient status line and whether it is an error.
func (m Model) StatusMessage() (string, bool) { return m.statusMsg, m.statusIsError }

// Pending returns how many tracks are queued for parsing.
func (m Model) Pending() int { return len(m.queue) + len(m.removals) }

// ThemeName returns the active theme's name.
func (m Model) ThemeName() string { return m.theme().Name }

// Degraded reports whether the watcher has fallen back to polling after an
// error.
func (m Model) Degraded() bool { return m.degraded }
