package text

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ShingleSize is the number of consecutive words per shingle. Larger values
// make matching stricter, smaller values forgive more edits.
const ShingleSize = 2

// Fingerprint maps shingle hashes to their occurrence counts.
type Fingerprint map[uint64]uint32

// Len returns the number of distinct shingles.
func (f Fingerprint) Len() int { return len(f) }

// Dice returns 2|A∩B| / (|A|+|B|) over the distinct shingles of a and b.
// Multiplicity is ignored, so the score is 1 exactly when both fingerprints
// hold the same set of shingles. Two empty fingerprints score 0.
func Dice(a, b Fingerprint) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	shared := 0
	for h := range a {
		if _, ok := b[h]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(total)
}

// index is the token-level layout of a text used by the optimizer: lineTok[i]
// is the position of the first token of line i (lineTok[len(lines)] is the
// token count) and shingles[p] hashes tokens[p:p+ShingleSize].
type index struct {
	tokens   []string
	lineTok  []int
	shingles []uint64
}

// buildIndex leaves copyright statements out unless nothing else remains, so
// a text made only of such lines still fingerprints to itself.
func buildIndex(lines []string) *index {
	idx := tokenize(lines, true)
	if len(idx.tokens) == 0 {
		idx = tokenize(lines, false)
	}

	if n := len(idx.tokens) - ShingleSize + 1; n > 0 {
		idx.shingles = make([]uint64, n)
		for p := range n {
			idx.shingles[p] = shingleHash(idx.tokens[p : p+ShingleSize])
		}
	}
	return idx
}

func tokenize(lines []string, skipCopyright bool) *index {
	idx := &index{lineTok: make([]int, len(lines)+1)}
	for i, l := range lines {
		idx.lineTok[i] = len(idx.tokens)
		if l == "" || (skipCopyright && isCopyrightLine(l)) {
			continue
		}
		idx.tokens = append(idx.tokens, strings.Fields(l)...)
	}
	idx.lineTok[len(lines)] = len(idx.tokens)
	return idx
}

// fingerprintRange builds the fingerprint of tokens [lo, hi). A run shorter
// than one shingle still yields a single shingle so that very short texts
// remain comparable.
func (idx *index) fingerprintRange(lo, hi int) Fingerprint {
	fp := Fingerprint{}
	switch count := hi - lo; {
	case count <= 0:
	case count < ShingleSize:
		fp[shingleHash(idx.tokens[lo:hi])]++
	default:
		for p := lo; p <= hi-ShingleSize; p++ {
			fp[idx.shingles[p]]++
		}
	}
	return fp
}

func fingerprint(lines []string) Fingerprint {
	idx := buildIndex(lines)
	return idx.fingerprintRange(0, len(idx.tokens))
}

func shingleHash(words []string) uint64 {
	d := xxhash.New()
	for i, w := range words {
		if i > 0 {
			_, _ = d.WriteString(" ")
		}
		_, _ = d.WriteString(w)
	}
	return d.Sum64()
}
