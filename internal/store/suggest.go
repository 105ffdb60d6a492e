package store

import (
	"cmp"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"
)

// minSuggestSimilarity is the Jaro-Winkler similarity below which a name is
// not offered as a suggestion.
const minSuggestSimilarity = 0.75

// Suggest returns up to n identifiers whose id or alias resembles name, most
// similar first.
func (s *Store) Suggest(name string, n int) []string {
	type scored struct {
		id    string
		score float32
	}

	if n <= 0 {
		return nil
	}
	query := strings.ToLower(name)
	best := map[string]float32{}
	for key, id := range s.aliases {
		sim, err := edlib.StringsSimilarity(query, key, edlib.JaroWinkler)
		if err != nil || sim < minSuggestSimilarity {
			continue
		}
		if sim > best[id] {
			best[id] = sim
		}
	}

	ranked := make([]scored, 0, len(best))
	for id, sc := range best {
		ranked = append(ranked, scored{id, sc})
	}
	slices.SortFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})

	out := make([]string, 0, min(n, len(ranked)))
	for _, r := range ranked[:min(n, len(ranked))] {
		out = append(out, r.id)
	}
	return out
}
