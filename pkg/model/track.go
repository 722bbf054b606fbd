// Package model defines the track, phase and task types shared by the parser,
// the repository and the UI.
package model

import (
	"math"
	"reflect"
	"slices"
	"strings"
	"time"
)

// TrackID identifies a track. It is the base name of the track's directory
// and stays fixed for the lifetime of that directory.
type TrackID string

func (id TrackID) String() string { return string(id) }

// Task is a checkbox item. Subtasks nest to any depth.
type Task struct {
	Text     string `json:"text"`
	Checked  bool   `json:"checked"`
	Subtasks []Task `json:"subtasks,omitempty"`
}

// Done reports whether the task is checked and every subtask is done.
func (t Task) Done() bool {
	if !t.Checked {
		return false
	}
	for _, st := range t.Subtasks {
		if !st.Done() {
			return false
		}
	}
	return true
}

// Counts returns the number of leaf tasks under t (t itself when it has no
// subtasks) and how many of those leaves are checked.
func (t Task) Counts() (total, done int) {
	if len(t.Subtasks) == 0 {
		if t.Checked {
			return 1, 1
		}
		return 1, 0
	}
	for _, st := range t.Subtasks {
		n, d := st.Counts()
		total += n
		done += d
	}
	return total, done
}

// Phase groups tasks under a heading.
type Phase struct {
	Name   string      `json:"name"`
	Tasks  []Task      `json:"tasks"`
	Marker Status      `json:"marker,omitempty"` // explicit "(COMPLETE)" style marker, StatusUnknown if none
	Status PhaseStatus `json:"status"`
}

// Counts returns leaf totals for the whole phase.
func (p Phase) Counts() (total, done int) {
	for _, t := range p.Tasks {
		n, d := t.Counts()
		total += n
		done += d
	}
	return total, done
}

// Completed reports whether the phase has at least one task and every task,
// including subtasks, is done.
func (p Phase) Completed() bool {
	if len(p.Tasks) == 0 {
		return false
	}
	for _, t := range p.Tasks {
		if !t.Done() {
			return false
		}
	}
	return true
}

// Percent returns the phase's own completion percentage.
func (p Phase) Percent() int {
	total, done := p.Counts()
	return Percent(done, total)
}

// Track is one track directory, fully parsed.
type Track struct {
	ID           TrackID      `json:"id"`
	Title        string       `json:"title"`
	Path         string       `json:"path"`
	Status       Status       `json:"status"`
	StatusSource StatusSource `json:"status_source"`
	Priority     Priority     `json:"priority"`
	Type         TrackType    `json:"type"`
	Phases       []Phase      `json:"phases"`

	TasksTotal      int `json:"tasks_total"`
	TasksCompleted  int `json:"tasks_completed"`
	ProgressPercent int `json:"progress_percent"`

	// LastUpdated is the newest mtime among the track's files.
	LastUpdated time.Time  `json:"last_updated"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`

	Tags         []string  `json:"tags,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	Dependencies []TrackID `json:"dependencies,omitempty"`
	Description  string    `json:"description,omitempty"`
	Spec         string    `json:"-"`
	Warnings     []string  `json:"warnings,omitempty"`
}

// Percent rounds done/total to an integer percentage. Zero total is 100.
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	p := int(math.Round(100 * float64(done) / float64(total)))
	return min(max(p, 0), 100)
}

// Recount recomputes task totals, progress and phase display states from
// the phases.
func (t *Track) Recount() {
	t.TasksTotal, t.TasksCompleted = 0, 0
	for _, p := range t.Phases {
		n, d := p.Counts()
		t.TasksTotal += n
		t.TasksCompleted += d
	}
	t.ProgressPercent = Percent(t.TasksCompleted, t.TasksTotal)

	foundActive := false
	for i := range t.Phases {
		p := &t.Phases[i]
		total, done := p.Counts()
		switch {
		case p.Marker == StatusBlocked:
			p.Status = PhaseBlocked
		case p.Marker == StatusComplete || p.Completed():
			p.Status = PhaseComplete
		case total > 0 && (!foundActive || done > 0):
			p.Status = PhaseActive
			foundActive = true
		default:
			p.Status = PhasePending
		}
	}
}

// CurrentPhase returns the first phase that is neither complete nor pending,
// or "" when there is none.
func (t Track) CurrentPhase() string {
	for _, p := range t.Phases {
		if p.Status == PhaseActive || p.Status == PhaseBlocked {
			return p.Name
		}
	}
	return ""
}

// OpenTask is an unchecked leaf task and where it sits in the plan.
type OpenTask struct {
	Phase string `json:"phase"`
	Text  string `json:"task"`
	// Depth is 0 for a top-level task.
	Depth int `json:"depth"`
}

// OpenTasks returns the unchecked leaf tasks in plan order.
func (t Track) OpenTasks() []OpenTask {
	var out []OpenTask
	var walk func(phase string, tasks []Task, depth int)
	walk = func(phase string, tasks []Task, depth int) {
		for _, task := range tasks {
			if len(task.Subtasks) > 0 {
				walk(phase, task.Subtasks, depth+1)
				continue
			}
			if !task.Checked {
				out = append(out, OpenTask{Phase: phase, Text: task.Text, Depth: depth})
			}
		}
	}
	for _, p := range t.Phases {
		walk(p.Name, p.Tasks, 0)
	}
	return out
}

// HasTag reports whether the track carries tag, ignoring case.
func (t Track) HasTag(tag string) bool {
	return slices.ContainsFunc(t.Tags, func(s string) bool {
		return strings.EqualFold(s, tag)
	})
}

// Equal reports whether two tracks hold the same data.
func (t Track) Equal(o Track) bool {
	if !t.LastUpdated.Equal(o.LastUpdated) || !timePtrEqual(t.CreatedAt, o.CreatedAt) || !timePtrEqual(t.UpdatedAt, o.UpdatedAt) {
		return false
	}
	a, b := t, o
	a.LastUpdated, b.LastUpdated = time.Time{}, time.Time{}
	a.CreatedAt, b.CreatedAt = nil, nil
	a.UpdatedAt, b.UpdatedAt = nil, nil
	return reflect.DeepEqual(a, b)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
