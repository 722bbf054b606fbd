package model

import "strings"

// Status is the lifecycle state of a track.
type Status int

const (
	StatusUnknown Status = iota
	StatusActive
	StatusBlocked
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusBlocked:
		return "Blocked"
	case StatusComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// IsValid reports whether s is one of the defined statuses.
func (s Status) IsValid() bool {
	return s >= StatusUnknown && s <= StatusComplete
}

// ParseStatus parses the many status spellings found in metadata files and
// tracks.md. Trailing annotations such as "Completed (2026-02-06)" are ignored.
// The second return value is false when the string was not recognized.
func ParseStatus(s string) (Status, bool) {
	switch normalizeWord(s) {
	case "complete", "completed", "done", "finished":
		return StatusComplete, true
	case "in_progress", "in-progress", "inprogress", "active", "implementation", "started":
		return StatusActive, true
	case "blocked", "on_hold", "on-hold", "paused":
		return StatusBlocked, true
	case "new", "not_started", "not-started", "planning", "planned", "pending", "todo":
		// Not started yet, but still workable.
		return StatusActive, true
	default:
		return StatusUnknown, false
	}
}

// normalizeWord lowercases s and keeps only its first token, treating
// whitespace and "(" as separators.
func normalizeWord(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, " \t("); i >= 0 {
		// "in progress" is common enough in hand-written files to special-case.
		if strings.HasPrefix(s, "in progress") {
			return "in_progress"
		}
		if strings.HasPrefix(s, "on hold") {
			return "on_hold"
		}
		if strings.HasPrefix(s, "not started") {
			return "not_started"
		}
		s = s[:i]
	}
	return s
}

// StatusSource records which input decided a track's status.
type StatusSource int

const (
	SourceNone StatusSource = iota
	SourceMarker
	SourceMetadata
	SourceIndex
	SourceDerived
)

func (s StatusSource) String() string {
	switch s {
	case SourceMarker:
		return "marker"
	case SourceMetadata:
		return "metadata"
	case SourceIndex:
		return "index"
	case SourceDerived:
		return "derived"
	default:
		return "none"
	}
}

// PhaseStatus is the display state of a single phase.
type PhaseStatus int

const (
	PhasePending PhaseStatus = iota
	PhaseActive
	PhaseComplete
	PhaseBlocked
)

func (p PhaseStatus) String() string {
	switch p {
	case PhaseActive:
		return "Active"
	case PhaseComplete:
		return "Complete"
	case PhaseBlocked:
		return "Blocked"
	default:
		return "Pending"
	}
}

// Priority orders tracks by urgency. Lower values are more urgent.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityLow:
		return "LOW"
	default:
		return "MEDIUM"
	}
}

// ParsePriority parses a priority leniently. Unrecognized input is Medium.
func ParsePriority(s string) Priority {
	p, _ := LookupPriority(s)
	return p
}

// LookupPriority is ParsePriority that also reports whether s named a
// priority at all.
func LookupPriority(s string) (Priority, bool) {
	switch normalizeWord(s) {
	case "critical", "p0", "urgent":
		return PriorityCritical, true
	case "high", "p1":
		return PriorityHigh, true
	case "medium", "p2", "normal":
		return PriorityMedium, true
	case "low", "p3":
		return PriorityLow, true
	default:
		return PriorityMedium, false
	}
}

// TrackType classifies the kind of work a track represents.
type TrackType int

const (
	TypeOther TrackType = iota
	TypeFeature
	TypeBug
	TypeMigration
	TypeRefactor
)

func (t TrackType) String() string {
	switch t {
	case TypeFeature:
		return "FEATURE"
	case TypeBug:
		return "BUG"
	case TypeMigration:
		return "MIGRATION"
	case TypeRefactor:
		return "REFACTOR"
	default:
		return "TRACK"
	}
}

// ParseTrackType parses a track type leniently. Unrecognized input is Other.
func ParseTrackType(s string) TrackType {
	switch normalizeWord(s) {
	case "feature", "feat":
		return TypeFeature
	case "bug", "bugfix", "fix":
		return TypeBug
	case "migration", "migrate":
		return TypeMigration
	case "refactor", "refactoring":
		return TypeRefactor
	default:
		return TypeOther
	}
}

// Text forms are lower case so that --json output and exports read as words.

func (s Status) MarshalText() ([]byte, error) { return []byte(strings.ToLower(s.String())), nil }

func (s *Status) UnmarshalText(b []byte) error {
	*s, _ = ParseStatus(string(b))
	return nil
}

func (s StatusSource) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (p PhaseStatus) MarshalText() ([]byte, error) { return []byte(strings.ToLower(p.String())), nil }

func (p Priority) MarshalText() ([]byte, error) { return []byte(strings.ToLower(p.String())), nil }

func (p *Priority) UnmarshalText(b []byte) error {
	*p = ParsePriority(string(b))
	return nil
}

func (t TrackType) MarshalText() ([]byte, error) { return []byte(strings.ToLower(t.String())), nil }

func (t *TrackType) UnmarshalText(b []byte) error {
	*t = ParseTrackType(string(b))
	return nil
}
