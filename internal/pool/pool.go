// Package pool provides the executor that fans matching work out across a
// fixed number of workers.
package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Executor splits index ranges across workers. Implementations must run fn
// for every index in [0, n) exactly once and return only after all calls
// have finished.
type Executor interface {
	Workers() int
	Partition(n int, fn func(lo, hi int))
}

// Pool is an Executor with a fixed worker count, sized once and shared by
// every caller. Each and Partition draw from the same slots, so a Partition
// running inside an Each task only fans out into slots the batch leaves idle.
type Pool struct {
	workers int
	slots   chan struct{}
}

// New creates a pool with the given number of workers. A non-positive count
// uses GOMAXPROCS.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers, slots: make(chan struct{}, workers)}
}

// Serial returns a single-worker pool that runs everything on the calling
// goroutine.
func Serial() *Pool {
	return New(1)
}

// Workers returns the worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Partition divides [0, n) into contiguous chunks and runs fn on each chunk
// concurrently. The caller counts as one worker; further chunks are only
// created for free slots, so with every slot busy fn runs once over [0, n).
func (p *Pool) Partition(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	helpers := p.reserve(min(p.workers, n) - 1)
	defer p.release(helpers)
	chunks := helpers + 1
	if chunks == 1 {
		fn(0, n)
		return
	}

	size := (n + chunks - 1) / chunks
	var g errgroup.Group
	for lo := size; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	fn(0, min(size, n))
	_ = g.Wait()
}

// Each calls fn for every index in [0, n) with at most Workers calls running
// at once. All calls run even when some fail; the first error is returned.
// Callers store results by index, so output order follows input order
// regardless of completion order. fn must not call Each on the same pool.
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	var g errgroup.Group
	for i := range n {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return err
		}
		select {
		case p.slots <- struct{}{}:
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		}
		g.Go(func() error {
			defer p.release(1)
			return fn(ctx, i)
		})
	}
	return g.Wait()
}

// reserve takes up to k free slots without blocking and returns how many it
// got.
func (p *Pool) reserve(k int) int {
	got := 0
	for got < k {
		select {
		case p.slots <- struct{}{}:
			got++
		default:
			return got
		}
	}
	return got
}

func (p *Pool) release(k int) {
	for range k {
		<-p.slots
	}
}
