package parser

import (
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// DefaultPhaseName holds tasks that appear before any phase heading.
const DefaultPhaseName = "Tasks"

// Plan is the structured content of a plan document.
type Plan struct {
	// Title is the cleaned text of the first H1, "" if absent or generic.
	Title string
	// Marker is an explicit status marker on the title heading.
	Marker model.Status
	Phases []model.Phase
}

type section struct {
	phase    model.Phase
	explicit bool // heading says "phase" or carries a marker
}

// ParsePlan extracts phases and tasks from plan markdown. It never fails:
// anything it does not recognize is skipped.
//
// Headings mentioning "phase" start phases. When a document has no such
// heading, every heading after the title starts one, and headings that end
// up with no tasks are dropped.
func ParsePlan(src []byte) Plan {
	doc := parseMarkdown(src)

	var (
		plan       Plan
		sections   []section
		sawTitle   bool
		phaseStyle = hasPhaseHeading(doc, src)
	)
	current := func() *section {
		if len(sections) == 0 {
			sections = append(sections, section{phase: model.Phase{Name: DefaultPhaseName}})
		}
		return &sections[len(sections)-1]
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *ast.Heading:
			raw := plainText(v, src)
			marker, name := statusMarker(raw)
			if v.Level == 1 && !sawTitle && !isPhaseName(name) && len(sections) == 0 {
				sawTitle = true
				plan.Title = cleanPlanTitle(name)
				plan.Marker = marker
				continue
			}
			explicit := isPhaseName(name) || marker != model.StatusUnknown
			if phaseStyle && !explicit {
				continue
			}
			if name == "" {
				name = raw
			}
			sections = append(sections, section{
				phase:    model.Phase{Name: name, Marker: marker},
				explicit: explicit,
			})
		case *ast.List:
			if tasks := collectTasks(v, src); len(tasks) > 0 {
				s := current()
				s.phase.Tasks = append(s.phase.Tasks, tasks...)
			}
		default:
			// Task lists nested in block quotes and similar containers still count.
			ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
				if !entering {
					return ast.WalkContinue, nil
				}
				if l, ok := c.(*ast.List); ok {
					if tasks := collectTasks(l, src); len(tasks) > 0 {
						s := current()
						s.phase.Tasks = append(s.phase.Tasks, tasks...)
					}
					return ast.WalkSkipChildren, nil
				}
				return ast.WalkContinue, nil
			})
		}
	}

	for _, s := range sections {
		if len(s.phase.Tasks) == 0 && !s.explicit && s.phase.Name != DefaultPhaseName {
			continue
		}
		plan.Phases = append(plan.Phases, s.phase)
	}
	return plan
}

func hasPhaseHeading(doc ast.Node, src []byte) bool {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			_, name := statusMarker(plainText(h, src))
			if isPhaseName(name) {
				return true
			}
		}
	}
	return false
}

func isPhaseName(s string) bool {
	return strings.Contains(strings.ToLower(s), "phase")
}

// collectTasks returns the task items of list. Nested task lists become
// subtasks of the enclosing task; tasks nested under plain bullets are
// lifted to the level of the bullet.
func collectTasks(list *ast.List, src []byte) []model.Task {
	var tasks []model.Task
	for c := list.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		var nested []model.Task
		for b := item.FirstChild(); b != nil; b = b.NextSibling() {
			if l, ok := b.(*ast.List); ok {
				nested = append(nested, collectTasks(l, src)...)
			}
		}
		cb := taskCheckBox(item)
		if cb == nil {
			tasks = append(tasks, nested...)
			continue
		}
		tasks = append(tasks, model.Task{
			Text:     cleanTaskText(plainText(item.FirstChild(), src)),
			Checked:  cb.IsChecked,
			Subtasks: nested,
		})
	}
	return tasks
}

func cleanTaskText(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "Task:"); ok {
		s = strings.TrimSpace(rest)
	}
	return s
}

var genericTitles = map[string]bool{
	"implementation plan": true,
	"plan":                true,
	"track plan":          true,
	"specification":       true,
	"spec":                true,
}

func cleanPlanTitle(s string) string {
	for _, prefix := range []string{"Implementation Plan:", "Track Plan:", "Plan:", "Track:", "Specification:", "Spec:"} {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.TrimSpace(s)
	if genericTitles[strings.ToLower(s)] {
		return ""
	}
	return s
}
