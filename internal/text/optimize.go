package text

// Optimizer locates the contiguous line range of a document that best matches
// a reference text, for licenses embedded in larger files.
type Optimizer struct {
	// Floor is the minimum window score worth reporting; below it the
	// whole-document score is returned.
	Floor float64
	// MaxSteps bounds the boundary refinement after the coarse scan.
	MaxSteps int
	// MinLines is the smallest query worth searching.
	MinLines int
}

// DefaultOptimizer is used by Optimize.
var DefaultOptimizer = Optimizer{
	Floor:    0.8,
	MaxSteps: 32,
	MinLines: 2,
}

// Optimize runs DefaultOptimizer.
func Optimize(query, reference *Text) (float64, LineRange) {
	return DefaultOptimizer.Optimize(query, reference)
}

// Optimize slides a window the size of reference over query, then hill-climbs
// the best window's boundaries. It falls back to the whole document when the
// reference does not fit inside the query, the query is too short, or no
// window beats both the floor and the whole-document score.
//
// The returned range always lies within [0, query.LineCount()).
func (o Optimizer) Optimize(query, reference *Text) (float64, LineRange) {
	n := query.LineCount()
	full := FullRange(n)
	whole := query.Score(reference)

	w := reference.LineCount()
	if n == 0 || w == 0 || w >= n || n < o.MinLines {
		return whole, full
	}

	win := newWindow(query.index(), reference.fp)

	best, start := -1.0, 0
	for s := 0; s+w <= n; s++ {
		if sc := win.score(s, s+w-1); sc > best {
			best, start = sc, s
		}
	}
	end := start + w - 1

	for step := 0; step < o.MaxSteps; step++ {
		moved := false
		for _, c := range [...]LineRange{
			{start - 1, end},
			{start + 1, end},
			{start, end - 1},
			{start, end + 1},
		} {
			if c.Start < 0 || c.End >= n || c.Empty() {
				continue
			}
			if sc := win.score(c.Start, c.End); sc > best {
				best, start, end, moved = sc, c.Start, c.End, true
			}
		}
		if !moved {
			break
		}
	}

	if best < o.Floor || best < whole {
		return whole, full
	}
	return best, LineRange{Start: start, End: end}
}

// window tracks the shingles of a line range incrementally so the coarse scan
// touches each token a bounded number of times.
type window struct {
	idx    *index
	ref    Fingerprint
	counts map[uint64]uint32
	shared int
	lo, hi int // shingle positions, inclusive; hi < lo when empty
}

func newWindow(idx *index, ref Fingerprint) *window {
	return &window{idx: idx, ref: ref, counts: map[uint64]uint32{}, lo: 0, hi: -1}
}

// score returns the Dice score of lines [start, end] against the reference.
func (w *window) score(start, end int) float64 {
	tokLo, tokHi := w.idx.lineTok[start], w.idx.lineTok[end+1]
	count := tokHi - tokLo
	if count > 0 && count < ShingleSize {
		return Dice(w.idx.fingerprintRange(tokLo, tokHi), w.ref)
	}
	if count <= 0 {
		w.set(tokLo, tokLo-1)
	} else {
		w.set(tokLo, tokHi-ShingleSize)
	}

	total := len(w.counts) + len(w.ref)
	if total == 0 {
		return 0
	}
	return 2 * float64(w.shared) / float64(total)
}

// set moves the window to shingle positions [lo, hi], touching only the
// positions that enter or leave.
func (w *window) set(lo, hi int) {
	for p := w.lo; p <= min(w.hi, lo-1); p++ {
		w.remove(p)
	}
	for p := max(w.lo, hi+1); p <= w.hi; p++ {
		w.remove(p)
	}
	for p := lo; p <= min(hi, w.lo-1); p++ {
		w.add(p)
	}
	for p := max(lo, w.hi+1); p <= hi; p++ {
		w.add(p)
	}
	w.lo, w.hi = lo, hi
}

func (w *window) add(p int) {
	h := w.idx.shingles[p]
	w.counts[h]++
	if w.counts[h] == 1 {
		if _, ok := w.ref[h]; ok {
			w.shared++
		}
	}
}

func (w *window) remove(p int) {
	h := w.idx.shingles[p]
	w.counts[h]--
	if w.counts[h] == 0 {
		delete(w.counts, h)
		if _, ok := w.ref[h]; ok {
			w.shared--
		}
	}
}
