package parser

import (
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// Checkbox is the state box in a tracks.md heading.
type Checkbox int

const (
	CheckboxNone Checkbox = iota
	CheckboxUnchecked
	CheckboxInProgress
	CheckboxChecked
)

// Status maps a checkbox to a track status.
func (c Checkbox) Status() (model.Status, bool) {
	switch c {
	case CheckboxChecked:
		return model.StatusComplete, true
	case CheckboxInProgress, CheckboxUnchecked:
		return model.StatusActive, true
	default:
		return model.StatusUnknown, false
	}
}

// IndexEntry is one track as listed in tracks.md.
type IndexEntry struct {
	ID           model.TrackID
	Title        string
	Checkbox     Checkbox
	Status       model.Status // StatusUnknown when no **Status** field
	Priority     model.Priority
	HasPriority  bool
	Tags         []string
	Branch       string
	Dependencies []model.TrackID
}

// ParseIndex reads the tracks.md registry. Each heading of the form
// "[x] Track: Title" starts an entry; the first link to tracks/<id>/ in the
// entry's body gives its ID. Entries without an ID are dropped.
func ParseIndex(src []byte) []IndexEntry {
	doc := parseMarkdown(src)

	var (
		entries []IndexEntry
		cur     *IndexEntry
	)
	flush := func() {
		if cur != nil && cur.ID != "" {
			entries = append(entries, *cur)
		}
		cur = nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level <= 3 {
			if e, ok := parseIndexHeading(plainText(h, src)); ok {
				flush()
				cur = &e
				continue
			}
			if h.Level <= 2 {
				flush()
			}
			continue
		}
		if cur == nil {
			continue
		}
		ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			switch v := c.(type) {
			case *ast.Link:
				if cur.ID == "" {
					cur.ID = trackIDFromLink(string(v.Destination))
				}
			case *ast.Paragraph, *ast.TextBlock:
				applyFields(cur, v, src)
			}
			return ast.WalkContinue, nil
		})
	}
	flush()
	return entries
}

func parseIndexHeading(s string) (IndexEntry, bool) {
	i := strings.Index(s, "Track:")
	if i < 0 {
		return IndexEntry{}, false
	}
	e := IndexEntry{Checkbox: CheckboxNone, Priority: model.PriorityMedium}
	head := strings.TrimSpace(s[:i])
	switch {
	case strings.HasPrefix(head, "[x]"), strings.HasPrefix(head, "[X]"):
		e.Checkbox = CheckboxChecked
	case strings.HasPrefix(head, "[~]"), strings.HasPrefix(head, "[-]"):
		e.Checkbox = CheckboxInProgress
	case strings.HasPrefix(head, "[ ]"):
		e.Checkbox = CheckboxUnchecked
	}
	title := s[i+len("Track:"):]
	if j := strings.Index(title, "✅"); j >= 0 {
		title = title[:j]
	}
	e.Title = strings.TrimSpace(title)
	if e.Title == "" {
		return IndexEntry{}, false
	}
	return e, true
}

func trackIDFromLink(dest string) model.TrackID {
	dest = strings.TrimRight(dest, "/")
	if i := strings.LastIndex(dest, "/tracks/"); i >= 0 {
		dest = dest[i+len("/tracks/"):]
	} else if strings.HasPrefix(dest, "tracks/") {
		dest = dest[len("tracks/"):]
	}
	if j := strings.IndexByte(dest, '/'); j >= 0 {
		dest = dest[:j]
	}
	if dest == "" || dest == "." || dest == ".." {
		return ""
	}
	return model.TrackID(dest)
}

// applyFields reads "**Key**: value" pairs from a paragraph. Several pairs may
// share a paragraph separated by soft line breaks.
func applyFields(e *IndexEntry, para ast.Node, src []byte) {
	var (
		key string
		val strings.Builder
	)
	emit := func() {
		if key != "" {
			applyField(e, key, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(val.String()), ":")))
		}
		key = ""
		val.Reset()
	}
	for c := para.FirstChild(); c != nil; c = c.NextSibling() {
		if em, ok := c.(*ast.Emphasis); ok && em.Level == 2 {
			emit()
			key = strings.TrimSuffix(strings.TrimSpace(plainText(em, src)), ":")
			continue
		}
		if key == "" {
			continue
		}
		switch v := c.(type) {
		case *ast.Text:
			val.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				emit()
			}
		case *ast.CodeSpan:
			val.WriteString(plainText(v, src))
		default:
			val.WriteString(plainText(c, src))
		}
	}
	emit()
}

func applyField(e *IndexEntry, key, value string) {
	if value == "" {
		return
	}
	switch strings.ToLower(key) {
	case "priority":
		e.Priority = model.ParsePriority(value)
		e.HasPriority = true
	case "status":
		if st, ok := model.ParseStatus(value); ok {
			e.Status = st
		}
	case "tags":
		e.Tags = splitList(value)
	case "branch":
		e.Branch = strings.Trim(value, "` ")
	case "dependencies", "depends on":
		for _, d := range splitList(value) {
			if i := strings.IndexByte(d, '('); i >= 0 {
				d = strings.TrimSpace(d[:i])
			}
			d = strings.Trim(d, "` ")
			if d != "" && !strings.EqualFold(d, "none") {
				e.Dependencies = append(e.Dependencies, model.TrackID(d))
			}
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
