package store

import (
	"slices"

	"github.com/dsablic/licensematch/internal/text"
)

// Match is the outcome of a search. An empty ID means no entry reached the
// confidence floor; Score still carries the best score seen.
type Match struct {
	ID      string          `json:"id,omitempty"`
	Variant Variant         `json:"variant"`
	Aliases []string        `json:"aliases,omitempty"`
	Score   float64         `json:"score"`
	Range   *text.LineRange `json:"range,omitempty"`
}

// Matched reports whether the match names a license.
func (m Match) Matched() bool { return m.ID != "" }

// better orders matches by score, then by identifier so that equal scores
// resolve to the lexicographically smallest id. It is a strict total order
// over distinct ids, which keeps parallel reduction deterministic.
func (m Match) better(o Match) bool {
	if m.Score != o.Score {
		return m.Score > o.Score
	}
	return m.ID < o.ID
}

// Analyze returns the entry whose best form scores highest against t.
// Entries are scored in parallel through the store's executor; each worker
// keeps a local best and the locals are reduced in a final pass.
func (s *Store) Analyze(t *text.Text) Match {
	n := len(s.ids)
	locals := make([]Match, n)
	filled := make([]bool, n)

	s.exec.Partition(n, func(lo, hi int) {
		var best Match
		for i := lo; i < hi; i++ {
			m := s.licenses[s.ids[i]].best(t)
			if i == lo || m.better(best) {
				best = m
			}
		}
		locals[lo], filled[lo] = best, true
	})

	var best Match
	found := false
	for i, m := range locals {
		if filled[i] && (!found || m.better(best)) {
			best, found = m, true
		}
	}
	if !found {
		return Match{}
	}
	return s.applyFloor(best)
}

// Candidates returns the k best entries for t, best first, ignoring the
// floor. The optimizer uses them to look for embedded licenses that the
// whole-document score undersells. A non-positive k yields none.
func (s *Store) Candidates(t *text.Text, k int) []Match {
	if k <= 0 {
		return nil
	}
	n := len(s.ids)
	all := make([]Match, n)
	s.exec.Partition(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			all[i] = s.licenses[s.ids[i]].best(t)
		}
	})
	slices.SortFunc(all, func(a, b Match) int {
		switch {
		case a.better(b):
			return -1
		case b.better(a):
			return 1
		}
		return 0
	})
	if k < len(all) {
		all = all[:k]
	}
	return all
}

// Finalize applies the confidence floor to a match produced outside Analyze,
// such as an optimized one.
func (s *Store) Finalize(m Match) Match {
	return s.applyFloor(m)
}

func (s *Store) applyFloor(m Match) Match {
	if m.Score < s.floor {
		return Match{Score: m.Score}
	}
	return m
}
