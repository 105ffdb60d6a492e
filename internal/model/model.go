// internal/model/model.go
package model

import (
	"sort"

	"github.com/dsablic/licensematch/internal/diff"
	"github.com/dsablic/licensematch/internal/text"
)

// CrosscheckMatch is one license reported by the secondary scanner.
type CrosscheckMatch struct {
	ID      string  `json:"id"`
	Percent float64 `json:"percent"`
}

// Crosscheck holds a second opinion on a single input.
type Crosscheck struct {
	Percent float64           `json:"percent"`
	Matches []CrosscheckMatch `json:"matches,omitempty"`
}

// FileResult is the report for one input. License is empty when nothing
// scored above the floor; Error is set when the input could not be processed.
type FileResult struct {
	Path       string          `json:"path"`
	License    string          `json:"license,omitempty"`
	Aliases    []string        `json:"aliases,omitempty"`
	Variant    string          `json:"variant,omitempty"`
	Score      float64         `json:"score"`
	Range      *text.LineRange `json:"range,omitempty"`
	Diff       []diff.Record   `json:"diff,omitempty"`
	DiffStats  *diff.Stats     `json:"diff_stats,omitempty"`
	Language   string          `json:"language,omitempty"`
	Crosscheck *Crosscheck     `json:"crosscheck,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Matched reports whether a license was identified.
func (r FileResult) Matched() bool { return r.License != "" }

// Failed reports whether the input could not be processed.
func (r FileResult) Failed() bool { return r.Error != "" }

// LicenseCount counts inputs matched to one license.
type LicenseCount struct {
	License string `json:"license"`
	Files   int    `json:"files"`
}

// Totals aggregates a set of results.
type Totals struct {
	Files     int            `json:"files"`
	Matched   int            `json:"matched"`
	Unmatched int            `json:"unmatched"`
	Failed    int            `json:"failed"`
	ByLicense []LicenseCount `json:"by_license,omitempty"`
}

// Report is the top-level output structure.
type Report struct {
	GeneratedAt    string       `json:"generated_at"`
	Cache          string       `json:"cache,omitempty"`
	Root           string       `json:"root,omitempty"`
	Revision       string       `json:"revision,omitempty"`
	ProjectLicense string       `json:"project_license,omitempty"`
	Floor          float64      `json:"floor"`
	Results        []FileResult `json:"results"`
	Totals         Totals       `json:"totals"`
}

// Failed reports whether any input failed.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}

// Count adds r to the file counts. ByLicense is left alone.
func (t *Totals) Count(r FileResult) {
	t.Files++
	switch {
	case r.Failed():
		t.Failed++
	case r.Matched():
		t.Matched++
	default:
		t.Unmatched++
	}
}

// Summarize computes totals. Licenses are ordered by file count, then id.
func Summarize(results []FileResult) Totals {
	var t Totals
	counts := make(map[string]int)
	for _, r := range results {
		t.Count(r)
		if r.Matched() && !r.Failed() {
			counts[r.License]++
		}
	}
	for id, n := range counts {
		t.ByLicense = append(t.ByLicense, LicenseCount{License: id, Files: n})
	}
	sort.Slice(t.ByLicense, func(i, j int) bool {
		a, b := t.ByLicense[i], t.ByLicense[j]
		if a.Files != b.Files {
			return a.Files > b.Files
		}
		return a.License < b.License
	})
	return t
}
