// Package template implements the RML template grammar of spec §4.2 and
// compiles constant/reference/template/function term maps into Generator
// functions that evaluate against a Record.
package template

import (
	"fmt"
	"strings"
)

// Segment is one piece of a parsed template: either literal text or a
// reference hole.
type Segment struct {
	Text  string
	IsRef bool
}

// Template is a parsed sequence of literal-text and reference segments.
type Template struct {
	Segments []Segment
}

// References returns every reference name used by the template's holes, in
// order, including duplicates.
func (t *Template) References() []string {
	var refs []string
	for _, seg := range t.Segments {
		if seg.IsRef {
			refs = append(refs, seg.Text)
		}
	}
	return refs
}

// Parse compiles a template string into its literal/reference segments.
// Grammar: a sequence of literal text and "{reference}" holes; "\{", "\}"
// and "\\" are escapes for a literal brace or backslash.
func Parse(s string) (*Template, error) {
	var segs []Segment
	var text strings.Builder

	flushText := func() {
		if text.Len() > 0 {
			segs = append(segs, Segment{Text: text.String()})
			text.Reset()
		}
	}

	runes := []rune(s)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case c == '\\' && i+1 < len(runes) && isEscapable(runes[i+1]):
			text.WriteRune(runes[i+1])
			i += 2

		case c == '{':
			flushText()
			j := i + 1
			var ref strings.Builder
			closed := false
			for j < len(runes) {
				if runes[j] == '\\' && j+1 < len(runes) && isEscapable(runes[j+1]) {
					ref.WriteRune(runes[j+1])
					j += 2
					continue
				}
				if runes[j] == '}' {
					closed = true
					break
				}
				ref.WriteRune(runes[j])
				j++
			}
			if !closed {
				return nil, fmt.Errorf("template: unterminated reference starting at %d in %q", i, s)
			}
			segs = append(segs, Segment{Text: ref.String(), IsRef: true})
			i = j + 1

		default:
			text.WriteRune(c)
			i++
		}
	}
	flushText()

	return &Template{Segments: segs}, nil
}

func isEscapable(r rune) bool {
	return r == '{' || r == '}' || r == '\\'
}
