// Package text turns raw license text into the normalized, fingerprinted form
// the matcher compares, and scores texts against one another.
package text

import (
	"fmt"
	"strings"
	"sync"
)

// Text is an immutable normalized view of some raw input. It is safe for
// concurrent use once constructed.
type Text struct {
	raw   string
	lines []string
	fp    Fingerprint

	once sync.Once
	idx  *index
}

// New normalizes raw. Any input, including empty or non-UTF-8 text, yields a
// usable (possibly empty) Text.
func New(raw string) *Text {
	rawLines := splitLines(raw)
	lines := make([]string, len(rawLines))
	for i, l := range rawLines {
		lines[i] = NormalizeLine(l)
	}
	return &Text{raw: raw, lines: lines, fp: fingerprint(lines)}
}

// Restore rebuilds a Text from previously normalized lines, keeping raw as the
// display text. The fingerprint depends only on lines, so a restored Text
// scores exactly like the one it was saved from.
func Restore(raw string, lines []string) *Text {
	norm := make([]string, len(lines))
	for i, l := range lines {
		norm[i] = NormalizeLine(l)
	}
	return &Text{raw: raw, lines: norm, fp: fingerprint(norm)}
}

// Raw returns the original input.
func (t *Text) Raw() string { return t.raw }

// Lines returns the normalized lines, one per raw line.
func (t *Text) Lines() []string { return t.lines }

// LineCount returns the number of lines.
func (t *Text) LineCount() int { return len(t.lines) }

// Fingerprint returns the shingle multiset of the text.
func (t *Text) Fingerprint() Fingerprint { return t.fp }

// Empty reports whether the text carries no comparable content.
func (t *Text) Empty() bool { return len(t.fp) == 0 }

// Normalized returns the normalized lines, each terminated by a newline.
// New(t.Normalized()) has the same lines as t.
func (t *Text) Normalized() string {
	var b strings.Builder
	for _, l := range t.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// Score returns the Dice similarity between t and other.
func (t *Text) Score(other *Text) float64 {
	return Dice(t.fp, other.fp)
}

// Slice returns the sub-text covering r. Out-of-range bounds are clamped; an
// empty range yields an empty Text.
func (t *Text) Slice(r LineRange) *Text {
	r = r.Clamp(len(t.lines))
	if r.Empty() {
		return New("")
	}
	rawLines := splitLines(t.raw)
	if len(rawLines) != len(t.lines) {
		// Restored without raw text: the normalized lines are all we have.
		return New(strings.Join(t.lines[r.Start:r.End+1], "\n"))
	}
	return New(strings.Join(rawLines[r.Start:r.End+1], "\n"))
}

func (t *Text) index() *index {
	t.once.Do(func() {
		t.idx = buildIndex(t.lines)
	})
	return t.idx
}

// LineRange is an inclusive range of zero-based line indices.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FullRange covers all n lines. For n == 0 the range is empty.
func FullRange(n int) LineRange {
	return LineRange{Start: 0, End: n - 1}
}

// Empty reports whether the range covers no lines.
func (r LineRange) Empty() bool { return r.End < r.Start }

// Len returns the number of lines covered.
func (r LineRange) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Clamp restricts r to [0, n).
func (r LineRange) Clamp(n int) LineRange {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > n-1 {
		r.End = n - 1
	}
	return r
}

// String renders the range with one-based line numbers, as editors show them.
func (r LineRange) String() string {
	if r.Empty() {
		return "empty"
	}
	return fmt.Sprintf("%d-%d", r.Start+1, r.End+1)
}
