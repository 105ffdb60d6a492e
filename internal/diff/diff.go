// Package diff explains a match by aligning a reference license with the
// lines of the input that matched it.
package diff

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dsablic/licensematch/internal/text"
)

// Kind classifies a diff line.
type Kind string

const (
	Same    Kind = "same"
	Added   Kind = "added"
	Removed Kind = "removed"
)

// Record is one line of a diff. Removed lines come from the reference, added
// lines from the query.
type Record struct {
	Line string `json:"line"`
	Kind Kind   `json:"kind"`
}

// Stats counts records by kind.
type Stats struct {
	Same    int `json:"same"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Changed reports whether any line differs.
func (s Stats) Changed() bool { return s.Added+s.Removed > 0 }

// Count tallies records by kind.
func Count(records []Record) Stats {
	var s Stats
	for _, r := range records {
		switch r.Kind {
		case Same:
			s.Same++
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		}
	}
	return s
}

// Lines diffs the normalized lines of reference against query, which is
// normally the normalized lines of the matched range. Records are in document
// order; inside a changed hunk all removals precede all additions.
func Lines(reference *text.Text, query []string) []Record {
	var ref []string
	if reference != nil {
		ref = reference.Lines()
	}

	in := newInterner()
	a := in.runes(ref)
	b := in.runes(query)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	var (
		out            []Record
		removed, added []Record
	)
	flush := func() {
		out = append(out, removed...)
		out = append(out, added...)
		removed, added = removed[:0], added[:0]
	}
	for _, d := range dmp.DiffMainRunes(a, b, false) {
		for _, r := range d.Text {
			line := in.line(r)
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				flush()
				out = append(out, Record{Line: line, Kind: Same})
			case diffmatchpatch.DiffDelete:
				removed = append(removed, Record{Line: line, Kind: Removed})
			case diffmatchpatch.DiffInsert:
				added = append(added, Record{Line: line, Kind: Added})
			}
		}
	}
	flush()
	return out
}

// interner maps each distinct line to a rune so the diff runs over whole
// lines. Runes start at 1 and skip the surrogate block, which does not survive
// a round trip through a Go string.
type interner struct {
	ids   map[string]rune
	lines []string
	next  rune
}

func newInterner() *interner {
	return &interner{ids: make(map[string]rune), lines: []string{""}, next: 1}
}

func (in *interner) runes(lines []string) []rune {
	out := make([]rune, len(lines))
	for i, l := range lines {
		r, ok := in.ids[l]
		if !ok {
			r = in.next
			in.ids[l] = r
			in.lines = append(in.lines, l)
			in.next++
			if in.next == 0xD800 {
				in.next = 0xE000
			}
		}
		out[i] = r
	}
	return out
}

func (in *interner) line(r rune) string {
	if r >= 0xE000 {
		r -= 0xE000 - 0xD800
	}
	if r <= 0 || int(r) >= len(in.lines) {
		return ""
	}
	return in.lines[r]
}
