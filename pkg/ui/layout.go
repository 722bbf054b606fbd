package ui

import (
	"math"

	"github.com/vanderheijden86/conductor-dashboard/pkg/state"
)

// pane is a horizontal slice of the body. w == 0 means hidden.
type pane struct{ x, w int }

// paneLayout places the list and detail panes below the header bars.
type paneLayout struct {
	top, height  int
	list, detail pane
}

func (l paneLayout) in(p pane, x, y int) bool {
	return p.w > 0 && x >= p.x && x < p.x+p.w && y >= l.top && y < l.top+l.height
}

func (l paneLayout) inList(x, y int) bool   { return l.in(l.list, x, y) }
func (l paneLayout) inDetail(x, y int) bool { return l.in(l.detail, x, y) }

// errorBarShown reports whether the error line sits between the stats and
// the body.
func (m Model) errorBarShown() bool {
	return m.statusIsError && m.statusMsg != ""
}

func (m Model) layout() paneLayout {
	l := paneLayout{top: 3, height: m.height - chromeLines}
	if m.errorBarShown() {
		l.top++
		l.height--
	}
	l.height = max(l.height, 3)

	base := m.state.BaseView()
	_, hasSel := m.state.Selected()
	single := m.width < SplitWidth || base == state.ViewMaximizedDetail
	switch {
	case single && hasSel && (base == state.ViewMaximizedDetail || base == state.ViewDetail):
		l.detail = pane{x: 0, w: m.width}
	case single:
		l.list = pane{x: 0, w: m.width}
	default:
		lw := int(math.Round(float64(m.width) * m.state.SplitRatio()))
		l.list = pane{x: 0, w: lw}
		l.detail = pane{x: lw, w: m.width - lw}
	}
	return l
}

// detailInner returns the viewport size for the detail pane. A hidden pane
// still gets a size so scroll bounds stay meaningful.
func (m Model) detailInner() (w, h int) {
	l := m.layout()
	w = l.detail.w
	if w == 0 {
		w = m.width
	}
	return max(w-2, 1), max(l.height-2, 1)
}

// listRows is how many tracks fit in the list pane.
func (m Model) listRows() int {
	l := m.layout()
	return max((l.height-2-listHeaderRows)/rowHeight, 1)
}
