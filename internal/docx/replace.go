// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"regexp"
	"sort"
	"strings"
)

// Replacer substitutes placeholder tokens for a fixed tag set. Keys are
// matched case-insensitively; whitespace inside the delimiters is allowed.
type Replacer struct {
	pattern *regexp.Regexp
	values  map[string]string
}

// NewReplacer compiles the tokens {key}, {{key}} and <<key>> for every key
// of tags. It returns nil when tags has no usable key.
func NewReplacer(tags map[string]string) *Replacer {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]string, len(tags))
	var alts []string
	for _, k := range keys {
		v := tags[k]
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if _, dup := values[key]; dup {
			continue
		}
		values[key] = v
		q := regexp.QuoteMeta(key)
		alts = append(alts,
			`\{\{\s*`+q+`\s*\}\}`,
			`\{\s*`+q+`\s*\}`,
			`<<\s*`+q+`\s*>>`,
		)
	}
	if len(alts) == 0 {
		return nil
	}
	return &Replacer{
		pattern: regexp.MustCompile(`(?i)` + strings.Join(alts, "|")),
		values:  values,
	}
}

// Replace substitutes every token in s and returns the result and the
// number of tokens replaced.
func (r *Replacer) Replace(s string) (string, int) {
	if r == nil {
		return s, 0
	}
	n := 0
	out := r.pattern.ReplaceAllStringFunc(s, func(tok string) string {
		key := strings.ToLower(strings.TrimSpace(strings.Trim(tok, "{}<>")))
		v, ok := r.values[key]
		if !ok {
			return tok
		}
		n++
		return v
	})
	return out, n
}

// apply rewrites the paragraphs of one part. The joined text of a
// paragraph is replaced as a whole, so tokens split across runs are found;
// the result goes into the paragraph's first text element and the others
// are emptied.
func (r *Replacer) apply(src []byte) ([]byte, int) {
	var edits []edit
	total := 0
	for _, p := range scan(src) {
		if len(p.nodes) == 0 {
			continue
		}
		text := p.Text()
		if !r.pattern.MatchString(text) {
			continue
		}
		replaced, n := r.Replace(text)
		if n == 0 {
			continue
		}
		total += n
		for i, node := range p.nodes {
			s := ""
			if i == 0 {
				s = replaced
			}
			edits = append(edits, edit{start: node.start, end: node.end, text: textElement(s)})
		}
	}
	return applyEdits(src, edits), total
}

// ReplaceTags substitutes tag values in the body (including tables) and
// in every header part. Footers are left untouched. It returns the number
// of tokens replaced.
func (d *Document) ReplaceTags(tags map[string]string) int {
	r := NewReplacer(tags)
	if r == nil {
		return 0
	}
	total := 0
	for _, name := range append([]string{partDocument}, d.headers()...) {
		src, ok := d.Part(name)
		if !ok {
			continue
		}
		out, n := r.apply(src)
		if n > 0 {
			d.SetPart(name, out)
			total += n
		}
	}
	return total
}

// Paragraphs returns the text of each body paragraph in document order.
func (d *Document) Paragraphs() []string {
	src, _ := d.Part(partDocument)
	return paragraphTexts(src)
}

// HeaderParagraphs returns the text of each paragraph of every header.
func (d *Document) HeaderParagraphs() []string {
	var out []string
	for _, name := range d.headers() {
		src, _ := d.Part(name)
		out = append(out, paragraphTexts(src)...)
	}
	return out
}

// Text returns the body text, one line per paragraph.
func (d *Document) Text() string {
	return strings.Join(d.Paragraphs(), "\n")
}
