// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"bytes"
	"encoding/xml"
	"html"
	"regexp"
	"sort"
	"strings"
)

// elementPattern matches the start, end and empty tags of w:p, w:t and
// w:tc. Names that merely begin with those letters (w:pPr, w:tab, w:tbl)
// do not match.
var elementPattern = regexp.MustCompile(`<(/?)w:(p|t|tc)((?:\s[^>]*)?)>`)

// textNode is one w:t element.
type textNode struct {
	start      int // '<' of the start tag
	openEnd    int // just past the start tag
	closeStart int // '<' of the end tag
	end        int // just past the end tag
	text       string
}

// paragraph is one w:p element and the text nodes it owns directly.
// Text inside paragraphs nested in it (text boxes) belongs to the inner
// paragraph.
type paragraph struct {
	start        int
	contentStart int
	contentEnd   int
	end          int
	openTag      string
	inCell       bool
	nested       bool // contains other paragraphs
	nodes        []*textNode
}

// Text returns the concatenated text of the paragraph's runs.
func (p *paragraph) Text() string {
	var b strings.Builder
	for _, n := range p.nodes {
		b.WriteString(n.text)
	}
	return b.String()
}

// scan locates the paragraphs of a WordprocessingML part in document
// order.
func scan(src []byte) []*paragraph {
	var (
		out       []*paragraph
		stack     []*paragraph
		cellDepth int
		current   *textNode
	)
	for _, m := range elementPattern.FindAllSubmatchIndex(src, -1) {
		closing := m[3] > m[2]
		name := string(src[m[4]:m[5]])
		attrs := src[m[6]:m[7]]
		empty := bytes.HasSuffix(attrs, []byte("/"))

		switch name {
		case "tc":
			if empty {
				continue
			}
			if closing {
				cellDepth--
			} else {
				cellDepth++
			}

		case "p":
			if empty {
				continue
			}
			if !closing {
				if len(stack) > 0 {
					stack[len(stack)-1].nested = true
				}
				stack = append(stack, &paragraph{
					start:        m[0],
					contentStart: m[1],
					openTag:      string(src[m[0]:m[1]]),
					inCell:       cellDepth > 0,
				})
				continue
			}
			if len(stack) == 0 {
				continue
			}
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			p.contentEnd = m[0]
			p.end = m[1]
			out = append(out, p)

		case "t":
			if empty {
				continue
			}
			if !closing {
				current = &textNode{start: m[0], openEnd: m[1]}
				continue
			}
			if current == nil || len(stack) == 0 {
				current = nil
				continue
			}
			current.closeStart = m[0]
			current.end = m[1]
			current.text = html.UnescapeString(string(src[current.openEnd:current.closeStart]))
			top := stack[len(stack)-1]
			top.nodes = append(top.nodes, current)
			current = nil
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// edit replaces src[start:end].
type edit struct {
	start, end int
	text       string
}

// applyEdits rewrites src with non-overlapping edits.
func applyEdits(src []byte, edits []edit) []byte {
	if len(edits) == 0 {
		return src
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var b bytes.Buffer
	b.Grow(len(src))
	last := 0
	for _, e := range edits {
		b.Write(src[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.Write(src[last:])
	return b.Bytes()
}

// textElement renders a w:t element holding s.
func textElement(s string) string {
	if s == "" {
		return "<w:t></w:t>"
	}
	return `<w:t xml:space="preserve">` + escape(s) + "</w:t>"
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

// paragraphTexts returns the text of every paragraph in src, skipping
// paragraphs that only contain other paragraphs.
func paragraphTexts(src []byte) []string {
	var out []string
	for _, p := range scan(src) {
		if p.nested && len(p.nodes) == 0 {
			continue
		}
		out = append(out, p.Text())
	}
	return out
}
