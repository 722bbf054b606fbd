package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/state"
	"github.com/vanderheijden86/conductor-dashboard/pkg/testutil"
)

var testEpoch = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

// testClock is a settable clock for Options.Now.
type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newTestModel(t *testing.T, tracks []model.Track) Model {
	t.Helper()
	clk := &testClock{t: testEpoch}
	m := NewModel(tracks, nil, nil, Options{NoWatch: true, Now: clk.Now})
	return resize(m, 140, 40)
}

func resize(m Model, w, h int) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(Model)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		updated, _ := m.Update(keyMsg(k))
		m = updated.(Model)
	}
	return m
}

func visibleTitles(m Model) []string {
	st := m.State()
	var out []string
	for _, t := range st.Visible() {
		out = append(out, t.Title)
	}
	return out
}

func TestNewModel_SelectsFirstTrack(t *testing.T) {
	tracks := testutil.NewDefault().Tracks(3)
	m := newTestModel(t, tracks)
	st := m.State()
	if st.SelectedID() == "" {
		t.Fatal("expected a track selected on start")
	}
	if st.SelectedIndex() != 0 {
		t.Errorf("expected first row selected, got %d", st.SelectedIndex())
	}
	if m.Repository().Len() != 3 {
		t.Errorf("repository has %d tracks, want 3", m.Repository().Len())
	}
}

func TestUpdate_HelpToggleAndAnyKeyDismiss(t *testing.T) {
	m := newTestModel(t, testutil.Named("One", "Two"))

	m = press(m, "?")
	if st := m.State(); st.View() != state.ViewHelp {
		t.Fatalf("expected help overlay, got %v", st.View())
	}
	// Any key closes help and is otherwise swallowed.
	m = press(m, "j")
	st := m.State()
	if st.View() != state.ViewList {
		t.Fatalf("expected list after dismissing help, got %v", st.View())
	}
	if st.SelectedIndex() != 0 {
		t.Errorf("dismissing key must not move the selection, got index %d", st.SelectedIndex())
	}
}

func TestUpdate_SearchVod(t *testing.T) {
	m := newTestModel(t, testutil.Named("Vodafone Sync", "Billing Revamp", "Auth Overhaul"))

	m = press(m, "/", "v", "o", "d")
	if st := m.State(); st.View() != state.ViewSearch {
		t.Fatalf("expected search view, got %v", st.View())
	}
	got := visibleTitles(m)
	if len(got) != 1 || got[0] != "Vodafone Sync" {
		t.Fatalf("search vod: got %v", got)
	}

	// Enter keeps the query and leaves the overlay.
	m = press(m, "enter")
	st := m.State()
	if st.View() != state.ViewList || st.Query() != "vod" {
		t.Fatalf("after enter: view %v query %q", st.View(), st.Query())
	}
	if st.SelectedID() != st.Visible()[0].ID {
		t.Errorf("selection should follow the only visible track")
	}

	// Esc in the list clears the submitted query.
	m = press(m, "esc")
	if got := visibleTitles(m); len(got) != 3 {
		t.Errorf("esc should clear the query, got %v", got)
	}
}

func TestUpdate_SearchEscRestores(t *testing.T) {
	m := newTestModel(t, testutil.Named("Vodafone Sync", "Billing Revamp"))
	m = press(m, "/", "b", "i", "backspace", "backspace", "x", "esc")
	st := m.State()
	if st.View() != state.ViewList || st.Query() != "" {
		t.Fatalf("esc should close search and clear: view %v query %q", st.View(), st.Query())
	}
	if len(st.Visible()) != 2 {
		t.Errorf("expected full list back, got %d", len(st.Visible()))
	}
}

func TestUpdate_SearchTypesCommandKeys(t *testing.T) {
	m := newTestModel(t, testutil.Named("Quick Fix", "Other"))
	// q, f and ? are text while searching.
	m = press(m, "/", "q", "space", "f", "?")
	st := m.State()
	if st.Query() != "q f?" {
		t.Fatalf("query = %q", st.Query())
	}
	if st.View() != state.ViewSearch {
		t.Fatalf("still expected search view, got %v", st.View())
	}
}

func TestUpdate_FilterCompleteIndependentOfSort(t *testing.T) {
	tracks := append(testutil.WithStatus("act", model.StatusActive, 5),
		testutil.WithStatus("done", model.StatusComplete, 2)...)
	m := newTestModel(t, tracks)

	m = press(m, "f", "f", "f")
	st := m.State()
	if st.Filter() != state.FilterComplete {
		t.Fatalf("expected Complete filter, got %v", st.Filter())
	}
	if len(st.Visible()) != 2 {
		t.Fatalf("Complete filter: got %d visible, want 2", len(st.Visible()))
	}
	m = press(m, "s")
	st = m.State()
	if st.Sort() != state.SortProgress || len(st.Visible()) != 2 {
		t.Fatalf("sort change altered the filtered set: sort %v, %d visible", st.Sort(), len(st.Visible()))
	}
	m = press(m, "f")
	if st := m.State(); len(st.Visible()) != 7 {
		t.Errorf("filter ring should return to All, got %d visible", len(st.Visible()))
	}
}

func TestUpdate_EnterMaximizesEscReturns(t *testing.T) {
	m := newTestModel(t, testutil.NewDefault().Tracks(2))
	m = press(m, "enter")
	if st := m.State(); st.View() != state.ViewMaximizedDetail {
		t.Fatalf("expected maximized detail, got %v", st.View())
	}
	m = press(m, "esc")
	if st := m.State(); st.View() != state.ViewList {
		t.Fatalf("expected list after esc, got %v", st.View())
	}
}

func TestUpdate_TabFocusScrollsDetail(t *testing.T) {
	tr := longTrack("long", 60)
	m := newTestModel(t, []model.Track{tr, testutil.Named("Other")[0]})
	before := m.State().SelectedID()

	m = press(m, "tab")
	if st := m.State(); st.View() != state.ViewDetail {
		t.Fatalf("expected detail focus, got %v", st.View())
	}
	m = press(m, "j", "j")
	st := m.State()
	if st.SelectedID() != before {
		t.Errorf("j in detail focus must not move selection")
	}
	if st.DetailScroll() != 2 {
		t.Errorf("detail scroll = %d, want 2", st.DetailScroll())
	}
	m = press(m, "tab")
	if st := m.State(); st.View() != state.ViewList {
		t.Fatalf("expected list focus, got %v", st.View())
	}
}

func TestUpdate_DetailScrollKeys(t *testing.T) {
	m := newTestModel(t, []model.Track{longTrack("long", 80)})
	m = press(m, "d")
	if got := m.State().DetailScroll(); got != 5 {
		t.Fatalf("d: scroll = %d, want 5", got)
	}
	m = press(m, "u", "u")
	if got := m.State().DetailScroll(); got != 0 {
		t.Fatalf("u: scroll = %d, want 0", got)
	}
	m = press(m, "ctrl+d")
	if got := m.State().DetailScroll(); got <= 0 {
		t.Fatalf("ctrl+d should page down, got %d", got)
	}
	for range 100 {
		m = press(m, "d")
	}
	st := m.State()
	maxScroll := m.viewport.TotalLineCount() - m.viewport.Height
	if st.DetailScroll() != maxScroll {
		t.Errorf("scroll should clamp at %d, got %d", maxScroll, st.DetailScroll())
	}
}

func TestUpdate_ResizeSplitClamped(t *testing.T) {
	m := newTestModel(t, testutil.Named("One"))
	for range 20 {
		m = press(m, "]")
	}
	if got := m.State().SplitRatio(); got != 0.8 {
		t.Errorf("ratio after growing = %v, want 0.8", got)
	}
	for range 20 {
		m = press(m, "[")
	}
	if got := m.State().SplitRatio(); got != 0.2 {
		t.Errorf("ratio after shrinking = %v, want 0.2", got)
	}
}

func TestUpdate_ThemeCycle(t *testing.T) {
	m := newTestModel(t, testutil.Named("One"))
	if m.ThemeName() != "mako" {
		t.Fatalf("default theme = %s", m.ThemeName())
	}
	m = press(m, "t")
	if m.ThemeName() != Palettes[1].Name {
		t.Errorf("after t: %s, want %s", m.ThemeName(), Palettes[1].Name)
	}
	for range len(Palettes) - 1 {
		m = press(m, "t")
	}
	if m.ThemeName() != "mako" {
		t.Errorf("theme ring should wrap to mako, got %s", m.ThemeName())
	}
}

func TestUpdate_Navigation(t *testing.T) {
	m := newTestModel(t, testutil.NewDefault().Tracks(5))
	m = press(m, "end")
	if got := m.State().SelectedIndex(); got != 4 {
		t.Fatalf("end: index %d", got)
	}
	m = press(m, "down")
	if got := m.State().SelectedIndex(); got != 4 {
		t.Fatalf("down at end should stay, got %d", got)
	}
	m = press(m, "up", "k")
	if got := m.State().SelectedIndex(); got != 2 {
		t.Fatalf("up twice: index %d", got)
	}
	m = press(m, "g")
	if got := m.State().SelectedIndex(); got != 0 {
		t.Fatalf("g: index %d", got)
	}
	m = press(m, "G", "home")
	if got := m.State().SelectedIndex(); got != 0 {
		t.Fatalf("home: index %d", got)
	}
}

func TestUpdate_QuitReturnsQuitCmd(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		m := newTestModel(t, testutil.Named("One"))
		_, cmd := m.Update(keyMsg(k))
		if cmd == nil {
			t.Fatalf("%s: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", k)
		}
	}
}

func TestUpdate_CtrlCQuitsFromSearch(t *testing.T) {
	m := newTestModel(t, testutil.Named("One"))
	m = press(m, "/")
	_, cmd := m.Update(keyMsg("ctrl+c"))
	if cmd == nil {
		t.Fatal("ctrl+c in search should quit")
	}
}

func TestUpdate_StatusExpiresOnTick(t *testing.T) {
	clk := &testClock{t: testEpoch}
	m := NewModel(testutil.Named("One"), nil, nil, Options{NoWatch: true, Now: clk.Now})
	m = resize(m, 120, 30)
	m.setStatus("boom", true)

	clk.t = clk.t.Add(5 * time.Second)
	updated, _ := m.Update(TickMsg(clk.t))
	m = updated.(Model)
	if msg, _ := m.StatusMessage(); msg != "boom" {
		t.Fatalf("status cleared too early: %q", msg)
	}

	clk.t = clk.t.Add(6 * time.Second)
	updated, cmd := m.Update(TickMsg(clk.t))
	m = updated.(Model)
	if msg, _ := m.StatusMessage(); msg != "" {
		t.Fatalf("status should expire after 10s, still %q", msg)
	}
	if cmd == nil {
		t.Error("tick must re-arm itself")
	}
}

func TestUpdate_CopyWithoutSelectionIsNoop(t *testing.T) {
	m := newTestModel(t, nil)
	m = press(m, "y")
	if msg, _ := m.StatusMessage(); msg != "" {
		t.Errorf("copy with nothing selected should do nothing, got %q", msg)
	}
}

func TestUpdate_CopySetsStatus(t *testing.T) {
	m := newTestModel(t, testutil.Named("One"))
	m = press(m, "y")
	msg, isErr := m.StatusMessage()
	// Headless CI has no clipboard; either outcome must be reported.
	if isErr {
		if !strings.Contains(msg, "Clipboard error") {
			t.Errorf("unexpected error status %q", msg)
		}
	} else if !strings.Contains(msg, "one_000") {
		t.Errorf("status should name the copied id, got %q", msg)
	}
}

func TestUpdate_MouseWheel(t *testing.T) {
	tracks := append([]model.Track{longTrack("aaa_long", 80)}, testutil.NewDefault().Tracks(4)...)
	m := newTestModel(t, tracks)
	m = press(m, "home")
	first := m.State().SelectedID()

	// Wheel over the detail pane scrolls it.
	l := m.layout()
	updated, _ := m.Update(tea.MouseMsg{X: l.detail.x + 5, Y: l.top + 2, Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	m = updated.(Model)
	st := m.State()
	if st.DetailScroll() != wheelLines {
		t.Fatalf("wheel over detail: scroll %d, want %d", st.DetailScroll(), wheelLines)
	}
	if st.SelectedID() != first {
		t.Fatal("wheel over detail must not move the selection")
	}

	// Wheel over the list moves the selection.
	updated, _ = m.Update(tea.MouseMsg{X: 3, Y: l.top + 2, Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	m = updated.(Model)
	if got := m.State().SelectedIndex(); got != 1 {
		t.Fatalf("wheel over list: index %d, want 1", got)
	}
}

func TestUpdate_MouseIgnoredUnderOverlay(t *testing.T) {
	m := newTestModel(t, testutil.NewDefault().Tracks(3))
	m = press(m, "?")
	l := m.layout()
	updated, _ := m.Update(tea.MouseMsg{X: 3, Y: l.top + 2, Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	m = updated.(Model)
	if got := m.State().SelectedIndex(); got != 0 {
		t.Errorf("mouse under help overlay moved selection to %d", got)
	}
}

// longTrack builds a track whose detail pane needs scrolling.
func longTrack(id string, tasks int) model.Track {
	p := model.Phase{Name: "Phase 1: Everything"}
	for i := range tasks {
		p.Tasks = append(p.Tasks, model.Task{Text: fmt.Sprintf("Task %d", i), Checked: i%2 == 0})
	}
	t := model.Track{
		ID:          model.TrackID(id),
		Title:       "Long " + id,
		Status:      model.StatusActive,
		Phases:      []model.Phase{p},
		LastUpdated: testEpoch.Add(time.Hour),
	}
	t.Recount()
	return t
}
