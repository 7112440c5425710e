package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// AsyncHandler decouples log emission from log writing: Handle enqueues the
// record and a small worker pool writes it through the wrapped handler.
// When the queue is full the record is dropped rather than blocking the
// request path.
type AsyncHandler struct {
	inner   slog.Handler
	queue   chan asyncEntry
	wg      *sync.WaitGroup
	dropped *atomic.Int64
}

// asyncEntry pairs a record with the handler derivation that produced it, so
// attrs and groups added via With survive the queue hop.
type asyncEntry struct {
	h   slog.Handler
	rec slog.Record
}

// NewAsyncHandler wraps inner with a queue of the given capacity drained by
// workers goroutines.
func NewAsyncHandler(inner slog.Handler, queueSize, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner:   inner,
		queue:   make(chan asyncEntry, queueSize),
		wg:      &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	for range workers {
		h.wg.Add(1)
		go h.worker()
	}
	return h
}

func (h *AsyncHandler) worker() {
	defer h.wg.Done()
	for e := range h.queue {
		_ = e.h.Handle(context.Background(), e.rec)
	}
}

// Enabled delegates to the wrapped handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it when the queue is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // hugeParam: signature fixed by slog.Handler
	select {
	case h.queue <- asyncEntry{h: h.inner, rec: rec}:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs wraps the derived inner handler while sharing the queue, worker
// pool and drop counter with the parent.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{
		inner:   h.inner.WithAttrs(attrs),
		queue:   h.queue,
		wg:      h.wg,
		dropped: h.dropped,
	}
}

// WithGroup wraps the derived inner handler while sharing the queue, worker
// pool and drop counter with the parent.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{
		inner:   h.inner.WithGroup(name),
		queue:   h.queue,
		wg:      h.wg,
		dropped: h.dropped,
	}
}

// DroppedCount reports how many records were discarded on a full queue.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close stops accepting records and blocks until the workers have written
// everything still queued. Close the root handler, not a derived one; they
// all share the same queue.
func (h *AsyncHandler) Close() {
	close(h.queue)
	h.wg.Wait()
}
