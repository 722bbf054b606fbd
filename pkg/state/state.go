// Package state holds the dashboard's interaction state and the pure
// filter→sort→search pipeline that derives the visible list from it.
//
// State is owned by the UI event loop and is never shared; it has no locks.
// Every transition leaves it satisfying two invariants the renderer relies
// on: the selected ID is either empty or present in the visible list, and
// the split ratio lies within its configured bounds.
package state

import (
	"math"
	"slices"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// Defaults for Options fields left zero.
const (
	DefaultSplitRatio = 0.45
	DefaultSplitMin   = 0.2
	DefaultSplitMax   = 0.8
	DefaultSplitStep  = 0.05
	DefaultScrollStep = 5
)

// Options configures a new State.
type Options struct {
	Filter     FilterMode
	Sort       SortMode
	SplitRatio float64
	SplitMin   float64
	SplitMax   float64
	SplitStep  float64
	ScrollStep int
	Theme      int
}

// State is the interaction state of the dashboard.
type State struct {
	view View
	// under is the view beneath an overlay; maxFrom is the split-view focus
	// to return to when leaving the maximized detail.
	under   View
	maxFrom View

	filter FilterMode
	sort   SortMode
	query  string

	all      []model.Track
	visible  []model.Track
	selected model.TrackID
	index    int

	scroll    int
	scrollMax int // -1 until the renderer reports sizes

	split              float64
	splitMin, splitMax float64
	splitStep          float64
	scrollStep         int
	theme              int
}

// New returns a State with an empty list.
func New(opts Options) State {
	s := State{
		view:       ViewList,
		under:      ViewList,
		maxFrom:    ViewList,
		filter:     opts.Filter,
		sort:       opts.Sort,
		index:      -1,
		scrollMax:  -1,
		split:      opts.SplitRatio,
		splitMin:   opts.SplitMin,
		splitMax:   opts.SplitMax,
		splitStep:  opts.SplitStep,
		scrollStep: opts.ScrollStep,
		theme:      opts.Theme,
	}
	if s.splitMin <= 0 || s.splitMax >= 1 || s.splitMin >= s.splitMax {
		s.splitMin, s.splitMax = DefaultSplitMin, DefaultSplitMax
	}
	if s.split == 0 {
		s.split = DefaultSplitRatio
	}
	if s.splitStep <= 0 {
		s.splitStep = DefaultSplitStep
	}
	if s.scrollStep <= 0 {
		s.scrollStep = DefaultScrollStep
	}
	s.split = s.clampSplit(s.split)
	return s
}

// View returns the current view.
func (s *State) View() View { return s.view }

// BaseView returns the view drawn underneath any overlay.
func (s *State) BaseView() View {
	if s.view.IsOverlay() {
		return s.under
	}
	return s.view
}

// Filter returns the filter mode.
func (s *State) Filter() FilterMode { return s.filter }

// Sort returns the sort mode.
func (s *State) Sort() SortMode { return s.sort }

// Query returns the search query.
func (s *State) Query() string { return s.query }

// Visible returns the visible list. Callers must not modify it.
func (s *State) Visible() []model.Track { return s.visible }

// All returns the tracks last passed to Refresh.
func (s *State) All() []model.Track { return s.all }

// SelectedID returns the selected track ID, or "" when nothing is selected.
func (s *State) SelectedID() model.TrackID { return s.selected }

// SelectedIndex returns the selection's position in the visible list, or -1.
func (s *State) SelectedIndex() int { return s.index }

// Selected returns the selected track.
func (s *State) Selected() (model.Track, bool) {
	if s.index < 0 || s.index >= len(s.visible) {
		return model.Track{}, false
	}
	return s.visible[s.index], true
}

// SplitRatio returns the list pane's share of the width.
func (s *State) SplitRatio() float64 { return s.split }

// SplitBounds returns the configured ratio bounds.
func (s *State) SplitBounds() (lo, hi float64) { return s.splitMin, s.splitMax }

// DetailScroll returns the detail pane's first visible line.
func (s *State) DetailScroll() int { return s.scroll }

// Theme returns the theme index.
func (s *State) Theme() int { return s.theme }

// Refresh replaces the track set and recomputes the visible list.
func (s *State) Refresh(all []model.Track) {
	s.all = all
	s.recompute()
}

// recompute re-derives the visible list and restores the selection: the same
// ID if it is still visible, else the previous index clamped to the new
// list, else nothing.
func (s *State) recompute() {
	prevID, prevIndex := s.selected, s.index
	s.visible = VisibleTracks(s.all, s.filter, s.sort, s.query)

	if len(s.visible) == 0 {
		s.setSelection(-1)
		return
	}
	if prevID != "" {
		if i := slices.IndexFunc(s.visible, func(t model.Track) bool { return t.ID == prevID }); i >= 0 {
			s.setSelection(i)
			return
		}
	}
	s.setSelection(min(max(prevIndex, 0), len(s.visible)-1))
}

func (s *State) setSelection(i int) {
	var id model.TrackID
	if i >= 0 && i < len(s.visible) {
		id = s.visible[i].ID
	} else {
		i = -1
	}
	if id != s.selected {
		s.scroll = 0
	}
	s.index, s.selected = i, id
	if id == "" && s.view == ViewMaximizedDetail {
		s.view = s.maxFrom
	}
}

// CycleFilter advances the filter ring.
func (s *State) CycleFilter() {
	s.filter = s.filter.Next()
	s.recompute()
}

// CycleSort toggles the sort mode.
func (s *State) CycleSort() {
	s.sort = s.sort.Next()
	s.recompute()
}

// OpenSearch shows the search overlay. The query is kept so it can be edited.
func (s *State) OpenSearch() {
	if s.view.IsOverlay() {
		return
	}
	s.under = s.view
	s.view = ViewSearch
}

// SearchInput appends r to the query and re-filters immediately.
func (s *State) SearchInput(r rune) {
	if s.view != ViewSearch {
		return
	}
	s.query += string(r)
	s.recompute()
}

// SearchBackspace removes the last rune of the query.
func (s *State) SearchBackspace() {
	if s.view != ViewSearch || s.query == "" {
		return
	}
	q := []rune(s.query)
	s.query = string(q[:len(q)-1])
	s.recompute()
}

// SubmitSearch closes the overlay and keeps the query applied.
func (s *State) SubmitSearch() {
	if s.view == ViewSearch {
		s.view = s.under
	}
}

// ClearSearch drops the query without changing the view.
func (s *State) ClearSearch() {
	if s.query == "" {
		return
	}
	s.query = ""
	s.recompute()
}

// Escape backs out one level: it closes an overlay (clearing the query when
// leaving search), leaves the maximized detail, returns focus from the
// detail pane to the list, and finally clears a submitted query.
func (s *State) Escape() {
	switch s.view {
	case ViewSearch:
		s.view = s.under
		s.ClearSearch()
	case ViewHelp:
		s.view = s.under
	case ViewMaximizedDetail:
		s.view = s.maxFrom
	case ViewDetail:
		s.view = ViewList
	case ViewList:
		s.ClearSearch()
	}
}

// Enter maximizes the detail of the selected track, or submits the search.
func (s *State) Enter() {
	switch s.view {
	case ViewList, ViewDetail:
		if s.selected != "" {
			s.maxFrom = s.view
			s.view = ViewMaximizedDetail
		}
	case ViewSearch:
		s.SubmitSearch()
	case ViewHelp:
		s.view = s.under
	case ViewMaximizedDetail:
	}
}

// ToggleHelp opens or closes the help overlay. It does nothing while the
// search overlay has the keyboard.
func (s *State) ToggleHelp() {
	switch s.view {
	case ViewHelp:
		s.view = s.under
	case ViewSearch:
	default:
		s.under = s.view
		s.view = ViewHelp
	}
}

// ToggleFocus switches focus between the list and detail panes of the split
// view.
func (s *State) ToggleFocus() {
	switch s.view {
	case ViewList:
		s.view = ViewDetail
	case ViewDetail:
		s.view = ViewList
	}
}

// MoveSelection moves the selection by delta rows, clamped to the list.
func (s *State) MoveSelection(delta int) {
	if len(s.visible) == 0 {
		return
	}
	if s.index < 0 {
		s.setSelection(0)
		return
	}
	s.setSelection(min(max(s.index+delta, 0), len(s.visible)-1))
}

// SelectFirst selects the first visible track.
func (s *State) SelectFirst() { s.SelectIndex(0) }

// SelectLast selects the last visible track.
func (s *State) SelectLast() { s.SelectIndex(len(s.visible) - 1) }

// SelectIndex selects row i. Out-of-range indexes are ignored.
func (s *State) SelectIndex(i int) {
	if i < 0 || i >= len(s.visible) {
		return
	}
	s.setSelection(i)
}

// SelectID selects the track with the given ID if it is visible.
func (s *State) SelectID(id model.TrackID) bool {
	i := slices.IndexFunc(s.visible, func(t model.Track) bool { return t.ID == id })
	if i < 0 {
		return false
	}
	s.setSelection(i)
	return true
}

// ScrollStep returns the configured detail scroll step for d/u.
func (s *State) ScrollStep() int { return s.scrollStep }

// ScrollDetail scrolls the detail pane by delta lines.
func (s *State) ScrollDetail(delta int) {
	s.scroll = s.clampScroll(s.scroll + delta)
}

// SetDetailBounds records the detail content height and viewport height so
// scrolling stops at the last page.
func (s *State) SetDetailBounds(contentLines, viewportHeight int) {
	s.scrollMax = max(0, contentLines-viewportHeight)
	s.scroll = s.clampScroll(s.scroll)
}

func (s *State) clampScroll(v int) int {
	if s.scrollMax >= 0 {
		v = min(v, s.scrollMax)
	}
	return max(v, 0)
}

// ResizeSplit moves the split by delta steps, clamped to the bounds.
func (s *State) ResizeSplit(delta int) {
	s.split = s.clampSplit(s.split + float64(delta)*s.splitStep)
}

// SetSplitRatio sets the split directly, clamped to the bounds.
func (s *State) SetSplitRatio(r float64) {
	s.split = s.clampSplit(r)
}

func (s *State) clampSplit(r float64) float64 {
	if math.IsNaN(r) {
		r = DefaultSplitRatio
	}
	r = math.Round(r*1000) / 1000
	return min(max(r, s.splitMin), s.splitMax)
}

// CycleTheme advances the theme index modulo n.
func (s *State) CycleTheme(n int) {
	if n <= 0 {
		return
	}
	s.theme = (s.theme + 1) % n
}

// Valid reports whether the renderer invariants hold. Tests use it.
func (s *State) Valid() bool {
	if s.split < s.splitMin || s.split > s.splitMax {
		return false
	}
	if s.selected == "" {
		return s.index == -1
	}
	return s.index >= 0 && s.index < len(s.visible) && s.visible[s.index].ID == s.selected
}
