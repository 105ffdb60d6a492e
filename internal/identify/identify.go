// Package identify runs the matching pipeline for one input or many: score
// against the store, optionally locate the license inside a larger document,
// and optionally explain the match with a diff.
package identify

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/dsablic/licensematch/internal/crawl"
	"github.com/dsablic/licensematch/internal/diff"
	"github.com/dsablic/licensematch/internal/license"
	"github.com/dsablic/licensematch/internal/logger"
	"github.com/dsablic/licensematch/internal/model"
	"github.com/dsablic/licensematch/internal/pool"
	"github.com/dsablic/licensematch/internal/store"
	"github.com/dsablic/licensematch/internal/text"
)

// DefaultCandidates is how many entries the optimizer tries.
const DefaultCandidates = 3

// Options selects the optional pipeline stages.
type Options struct {
	Optimize   bool
	Diff       bool
	Candidates int
	// Optimizer overrides the sub-range search. Its floor defaults to the
	// store's.
	Optimizer  *text.Optimizer
	Crosscheck bool
	Language   bool
	// Pool runs batches. Pass the pool given to store.WithExecutor so both
	// share one worker budget; nil creates a pool of Workers.
	Pool    *pool.Pool
	Workers int
	Logger  *slog.Logger
}

// Progress receives each batch result as it completes. Implementations must
// be safe for concurrent use.
type Progress interface {
	Update(completed, total int, res model.FileResult)
}

// Identifier matches inputs against a store.
type Identifier struct {
	st   *store.Store
	opts Options
	opt  text.Optimizer
	pool *pool.Pool
	log  *slog.Logger
}

// New creates an Identifier. The store must not be modified afterwards.
func New(st *store.Store, opts Options) *Identifier {
	if opts.Candidates <= 0 {
		opts.Candidates = DefaultCandidates
	}
	id := &Identifier{
		st:   st,
		opts: opts,
		opt:  text.DefaultOptimizer,
		pool: opts.Pool,
		log:  opts.Logger,
	}
	id.opt.Floor = st.Floor()
	if opts.Optimizer != nil {
		id.opt = *opts.Optimizer
	}
	if id.pool == nil {
		id.pool = pool.New(opts.Workers)
	}
	if id.log == nil {
		id.log = logger.Discard()
	}
	return id
}

// Match scores t. With Optimize set, every form of the best few entries is
// also searched for a matching sub-range, and the best of the plain and
// optimized results is kept. The floor applies to whichever wins.
func (id *Identifier) Match(t *text.Text) store.Match {
	m := id.st.Analyze(t)
	if !id.opts.Optimize || t.Empty() {
		return m
	}

	var best store.Match
	found := false
	for _, c := range id.st.Candidates(t, id.opts.Candidates) {
		e, ok := id.st.Get(c.ID)
		if !ok {
			continue
		}
		for _, f := range e.Forms() {
			score, r := id.opt.Optimize(t, f.Text)
			if !found || score > best.Score {
				best = store.Match{ID: e.ID, Variant: f.Variant, Aliases: e.Aliases, Score: score, Range: &r}
				found = true
			}
		}
	}

	if !found || m.Score >= best.Score {
		if m.Matched() {
			full := text.FullRange(t.LineCount())
			m.Range = &full
		}
		return m
	}
	return id.st.Finalize(best)
}

// IdentifyText runs the pipeline over raw text. It never fails; a text with
// no confident match yields a result without a license.
func (id *Identifier) IdentifyText(name, raw string) model.FileResult {
	t := text.New(raw)
	m := id.Match(t)

	res := model.FileResult{
		Path:  name,
		Score: m.Score,
	}
	if m.Matched() {
		res.License = m.ID
		res.Aliases = m.Aliases
		res.Variant = m.Variant.String()
		res.Range = m.Range
		if id.opts.Diff {
			res.Diff = id.explain(t, m)
			stats := diff.Count(res.Diff)
			res.DiffStats = &stats
		}
	}
	if id.opts.Crosscheck {
		res.Crosscheck = license.Crosscheck([]byte(raw))
	}
	if id.opts.Language {
		res.Language = crawl.Language(name, []byte(raw))
	}
	return res
}

func (id *Identifier) explain(t *text.Text, m store.Match) []diff.Record {
	e, ok := id.st.Get(m.ID)
	if !ok {
		return nil
	}
	ref := e.Text(m.Variant)
	if ref == nil {
		return nil
	}
	query := t
	if m.Range != nil {
		query = t.Slice(*m.Range)
	}
	return diff.Lines(ref, query.Lines())
}

// IdentifyFile reads path and identifies its content. A read or decode
// failure is returned as *InputError and also recorded in the result.
func (id *Identifier) IdentifyFile(path string) (model.FileResult, error) {
	raw, err := ReadFile(path)
	if err != nil {
		return model.FileResult{Path: path, Error: err.Error()}, err
	}
	return id.IdentifyText(path, raw), nil
}

// Batch identifies each path, at most Workers at a time. Results follow the
// order of paths. A failing input is recorded in its result and does not stop
// the others; cancellation leaves unstarted inputs marked with the context
// error.
func (id *Identifier) Batch(ctx context.Context, paths []string, progress Progress) []model.FileResult {
	return id.BatchFunc(ctx, len(paths), func(i int) (model.FileResult, error) {
		return id.IdentifyFile(paths[i])
	}, func(i int) string { return paths[i] }, progress)
}

// BatchFunc is Batch over an arbitrary input source. load produces the result
// for input i and name labels it for progress and cancellation.
func (id *Identifier) BatchFunc(ctx context.Context, n int, load func(i int) (model.FileResult, error), name func(i int) string, progress Progress) []model.FileResult {
	results := make([]model.FileResult, n)
	done := make([]bool, n)
	var completed atomic.Int64

	_ = id.pool.Each(ctx, n, func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := load(i)
		if err != nil {
			id.log.Warn("input failed", "path", name(i), "error", err)
		} else {
			id.log.Debug("identified", "path", name(i), "license", res.License, "score", res.Score)
		}
		if res.Path == "" {
			res.Path = name(i)
		}
		results[i], done[i] = res, true
		if progress != nil {
			progress.Update(int(completed.Add(1)), n, res)
		}
		return nil
	})

	for i := range results {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = model.FileResult{Path: name(i), Error: err.Error()}
		}
	}
	return results
}
