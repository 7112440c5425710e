// Package logger provides structured logging setup for LevelBoard.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/playforge/levelboard/internal/config"
)

// asyncChanSize is the buffer capacity for the async handler.
const asyncChanSize = 4096

// Closer flushes and stops a handler on shutdown.
type Closer interface {
	Close()
}

// nopCloser is returned in synchronous mode, where there is nothing to flush.
type nopCloser struct{}

func (nopCloser) Close() {}

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
// When cfg.Async is set the handler is non-blocking; the returned Closer
// flushes it on shutdown. In synchronous mode Close is a no-op.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	closer := Closer(nopCloser{})
	if cfg.Async {
		ah := NewAsyncHandler(handler, asyncChanSize, 2)
		handler = ah
		closer = ah
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
