// Package runner bounds concurrency for long-running dashboard operations.
package runner

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// admitWarnAfter is how long a run may wait for a slot before the delay is
// worth a log line.
const admitWarnAfter = 2 * time.Second

// Pool admits bulk triage runs up to a fixed concurrency. Admission blocks,
// so a burst of apply-all requests queues up instead of hitting the store
// with parallel write sequences.
type Pool struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewPool creates a Pool admitting at most limit concurrent runs. Limits
// below one are clamped to one.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// InFlight reports how many runs currently hold a slot.
func (p *Pool) InFlight() int64 {
	if p == nil {
		return 0
	}
	return p.inFlight.Load()
}

// Run blocks until a slot frees up, executes fn, and releases the slot.
// Cancellation while waiting returns ctx.Err(); once fn has started it runs
// to completion. A nil pool executes fn directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	start := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if waited := time.Since(start); waited > admitWarnAfter {
		slog.Warn("bulk run waited for a pool slot", "waited", waited)
	}
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.sem.Release(1)
	}()
	return fn()
}
