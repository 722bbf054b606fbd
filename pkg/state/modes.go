package state

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// View is the closed set of screens the dashboard can show. List and Detail
// are the split view with focus on one pane; the others replace or overlay it.
type View int

const (
	ViewList View = iota
	ViewDetail
	ViewMaximizedDetail
	ViewSearch
	ViewHelp
)

func (v View) String() string {
	switch v {
	case ViewList:
		return "list"
	case ViewDetail:
		return "detail"
	case ViewMaximizedDetail:
		return "maximized"
	case ViewSearch:
		return "search"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// IsOverlay reports whether v is drawn on top of a base view.
func (v View) IsOverlay() bool {
	return v == ViewSearch || v == ViewHelp
}

// FilterMode restricts the list to one status.
type FilterMode int

const (
	FilterAll FilterMode = iota
	FilterActive
	FilterBlocked
	FilterComplete
	numFilterModes
)

func (f FilterMode) String() string {
	switch f {
	case FilterAll:
		return "all"
	case FilterActive:
		return "active"
	case FilterBlocked:
		return "blocked"
	case FilterComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Label is the title-cased name shown in the stats bar.
func (f FilterMode) Label() string {
	switch f {
	case FilterComplete:
		return "Done"
	default:
		s := f.String()
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// Next returns the next mode in the ring All→Active→Blocked→Complete→All.
func (f FilterMode) Next() FilterMode {
	return (f + 1) % numFilterModes
}

// Matches reports whether a track with status st passes the filter.
func (f FilterMode) Matches(st model.Status) bool {
	switch f {
	case FilterActive:
		return st == model.StatusActive
	case FilterBlocked:
		return st == model.StatusBlocked
	case FilterComplete:
		return st == model.StatusComplete
	default:
		return true
	}
}

// ParseFilterMode parses a --filter value.
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "active":
		return FilterActive, nil
	case "blocked":
		return FilterBlocked, nil
	case "complete", "completed", "done":
		return FilterComplete, nil
	}
	return FilterAll, fmt.Errorf("invalid filter %q (want all, active, blocked or complete)", s)
}

// FilterModes lists every filter mode in ring order.
func FilterModes() []FilterMode {
	return []FilterMode{FilterAll, FilterActive, FilterBlocked, FilterComplete}
}

// SortMode orders the list. Both modes sort descending with an ID tie-break.
type SortMode int

const (
	SortLastUpdated SortMode = iota
	SortProgress
	numSortModes
)

func (s SortMode) String() string {
	switch s {
	case SortLastUpdated:
		return "updated"
	case SortProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// Label is the name shown in the stats bar.
func (s SortMode) Label() string {
	if s == SortProgress {
		return "Progress"
	}
	return "Recent"
}

// Next cycles LastUpdated↔Progress.
func (s SortMode) Next() SortMode {
	return (s + 1) % numSortModes
}

// ParseSortMode parses a --sort value.
func ParseSortMode(v string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "updated", "recent", "last_updated":
		return SortLastUpdated, nil
	case "progress":
		return SortProgress, nil
	}
	return SortLastUpdated, fmt.Errorf("invalid sort %q (want updated or progress)", v)
}
