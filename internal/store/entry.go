package store

import (
	"fmt"

	"github.com/dsablic/licensematch/internal/text"
)

// VariantKind says which textual form of a license produced a match.
type VariantKind int

const (
	Original VariantKind = iota
	Header
	Alternate
)

func (k VariantKind) String() string {
	switch k {
	case Original:
		return "original"
	case Header:
		return "header"
	case Alternate:
		return "alternate"
	}
	return fmt.Sprintf("variant(%d)", int(k))
}

// MarshalText renders the kind by name in reports.
func (k VariantKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *VariantKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "original":
		*k = Original
	case "header":
		*k = Header
	case "alternate":
		*k = Alternate
	default:
		return fmt.Errorf("unknown variant kind %q", b)
	}
	return nil
}

// Variant identifies one form of an entry: the original text, or the
// Index-th header or alternate.
type Variant struct {
	Kind  VariantKind `json:"kind"`
	Index int         `json:"index"`
}

func (v Variant) String() string {
	if v.Kind == Original {
		return v.Kind.String()
	}
	return fmt.Sprintf("%s #%d", v.Kind, v.Index+1)
}

// Entry holds every known textual form of one license.
type Entry struct {
	ID         string
	Original   *text.Text
	Aliases    []string
	Headers    []*text.Text
	Alternates []*text.Text
}

// Form pairs a variant with its text.
type Form struct {
	Variant Variant
	Text    *text.Text
}

// Forms lists the original, then headers, then alternates.
func (e *Entry) Forms() []Form {
	forms := make([]Form, 0, 1+len(e.Headers)+len(e.Alternates))
	forms = append(forms, Form{Variant: Variant{Kind: Original}, Text: e.Original})
	for i, h := range e.Headers {
		forms = append(forms, Form{Variant: Variant{Kind: Header, Index: i}, Text: h})
	}
	for i, a := range e.Alternates {
		forms = append(forms, Form{Variant: Variant{Kind: Alternate, Index: i}, Text: a})
	}
	return forms
}

// Text returns the form named by v, or nil when the entry has no such form.
func (e *Entry) Text(v Variant) *text.Text {
	switch v.Kind {
	case Original:
		return e.Original
	case Header:
		if v.Index >= 0 && v.Index < len(e.Headers) {
			return e.Headers[v.Index]
		}
	case Alternate:
		if v.Index >= 0 && v.Index < len(e.Alternates) {
			return e.Alternates[v.Index]
		}
	}
	return nil
}

// best scores t against every form and keeps the highest. Earlier forms win
// ties, so the original beats an equally scoring header.
func (e *Entry) best(t *text.Text) Match {
	m := Match{ID: e.ID, Aliases: e.Aliases}
	first := true
	for _, f := range e.Forms() {
		if sc := t.Score(f.Text); first || sc > m.Score {
			m.Score, m.Variant = sc, f.Variant
			first = false
		}
	}
	return m
}
