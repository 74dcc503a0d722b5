// Package blockingbridge dispatches blocking calls (C library FFI, path
// canonicalization) onto a pool of OS threads dedicated to blocking work,
// and races each call against a per-call timeout, per spec.md §4.6.
package blockingbridge

import (
	"context"
	"time"

	"github.com/javi11/magicer/internal/apperr"
	"github.com/sourcegraph/conc/pool"
)

// Bridge runs blocking work on a bounded goroutine pool and enforces a
// timeout per call. It never parks the caller's own goroutine on the
// blocking work directly: the work always runs in a pool-managed
// goroutine, and on timeout the caller returns while that goroutine is left
// to finish and its result is dropped, per spec.md §4.6 and §5.
type Bridge struct {
	pool *pool.Pool
}

// New creates a Bridge backed by a pool of at most maxWorkers goroutines
// reserved for blocking calls. maxWorkers <= 0 means unbounded (conc's
// default).
func New(maxWorkers int) *Bridge {
	p := pool.New()
	if maxWorkers > 0 {
		p = p.WithMaxGoroutines(maxWorkers)
	}
	return &Bridge{pool: p}
}

// Call runs fn in a goroutine of its own (not on a Bridge's pool),
// returning fn's result or apperr.Timeout if it does not complete within
// timeout. On timeout, fn continues running to completion in the
// background; its eventual result is discarded.
func Call[T any](ctx context.Context, timeout time.Duration, op string, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}

	done := make(chan result, 1)
	go func() {
		val, err := fn()
		done <- result{val: val, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.val, r.err
	case <-timer.C:
		var zero T
		return zero, apperr.New(op, apperr.Timeout, "operation exceeded its deadline")
	case <-ctx.Done():
		var zero T
		return zero, apperr.Wrap(op, apperr.Timeout, ctx.Err())
	}
}

// Dispatch submits fn to the bridge's managed pool and blocks until either
// fn completes or timeout elapses, whichever comes first. The timeout
// starts once the pool has accepted fn; when every worker is busy,
// submission itself waits for a free worker first. Unlike Call, the
// work is explicitly tracked by the Bridge's pool so callers that want a
// bounded number of concurrent blocking calls (rather than one goroutine
// per call) should prefer this.
func (b *Bridge) Dispatch(ctx context.Context, timeout time.Duration, op string, fn func() error) error {
	done := make(chan error, 1)
	b.pool.Go(func() {
		done <- fn()
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return apperr.New(op, apperr.Timeout, "operation exceeded its deadline")
	case <-ctx.Done():
		return apperr.Wrap(op, apperr.Timeout, ctx.Err())
	}
}

// Wait blocks until all previously dispatched work has completed. Intended
// for graceful shutdown.
func (b *Bridge) Wait() {
	b.pool.Wait()
}
