package parser

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// md is safe for concurrent use; goldmark parsers hold no per-document state.
var md = goldmark.New(goldmark.WithExtensions(extension.TaskList))

func parseMarkdown(src []byte) ast.Node {
	return md.Parser().Parse(text.NewReader(src))
}

// plainText flattens the inline content of n into a single line.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	writePlain(&b, n, src)
	return strings.Join(strings.Fields(b.String()), " ")
}

func writePlain(b *strings.Builder, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *extast.TaskCheckBox:
			continue
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.CodeSpan:
			b.WriteByte('`')
			writePlain(b, v, src)
			b.WriteByte('`')
		case *ast.AutoLink:
			b.Write(v.URL(src))
		case *ast.RawHTML:
			continue
		default:
			writePlain(b, c, src)
		}
	}
}

// taskCheckBox returns the checkbox leading a list item, or nil when the item
// is not a task.
func taskCheckBox(item *ast.ListItem) *extast.TaskCheckBox {
	block := item.FirstChild()
	if block == nil {
		return nil
	}
	cb, _ := block.FirstChild().(*extast.TaskCheckBox)
	return cb
}

var markerRe = regexp.MustCompile(`(?i)[(\[]\s*(complete|completed|done|blocked|on[ _-]?hold|in[ _-]?progress|active)\s*[)\]]`)

// statusMarker extracts an explicit status marker from heading text and
// returns the text with the marker removed. StatusUnknown means no marker.
func statusMarker(s string) (model.Status, string) {
	if m := markerRe.FindStringSubmatchIndex(s); m != nil {
		st, _ := model.ParseStatus(strings.ReplaceAll(s[m[2]:m[3]], " ", "_"))
		return st, cleanHeading(s[:m[0]] + s[m[1]:])
	}
	if i := strings.Index(s, "✅"); i >= 0 {
		return model.StatusComplete, cleanHeading(s[:i])
	}
	return model.StatusUnknown, s
}

func cleanHeading(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, " -–:")
}
