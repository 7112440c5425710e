// Package ws pushes dashboard events to connected clients over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// sendQueueSize bounds the per-client outbound queue. Bulk triage runs emit
// one event per processed level, so bursts of a few hundred are normal.
const sendQueueSize = 256

// writeTimeout caps how long a single frame write may block.
const writeTimeout = 5 * time.Second

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn is one connected dashboard client. Frames are written by a dedicated
// goroutine draining send, so a stalled client never blocks Broadcast.
type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	cancel context.CancelFunc
}

// Hub tracks connected dashboard clients and fans events out to all of them.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[*conn]struct{}),
	}
}

// HandleWS upgrades the request and registers the client with the hub. The
// handler blocks for the connection's lifetime; returning early would cancel
// the request context underneath the read and write loops.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{ws: ws, send: make(chan []byte, sendQueueSize), cancel: cancel}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "clients", h.ConnectionCount())

	go c.writeLoop(ctx, h)
	c.readLoop(ctx, h)
}

// readLoop consumes inbound frames until the connection dies. Clients send
// nothing meaningful; the loop exists to notice disconnects and answer pings.
func (c *conn) readLoop(ctx context.Context, h *Hub) {
	defer func() {
		h.remove(c)
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		if _, _, err := c.ws.Read(ctx); err != nil {
			return
		}
	}
}

// writeLoop drains the send queue onto the wire.
func (c *conn) writeLoop(ctx context.Context, h *Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "error", err)
				h.remove(c)
				return
			}
		}
	}
}

// Broadcast queues a message for every connected client. A client whose
// queue is full is dropped rather than allowed to stall the others.
func (h *Hub) Broadcast(_ context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case c.send <- data:
		default:
			slog.Warn("websocket send queue full, dropping client")
			h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// remove cancels the connection's context and deregisters it. Safe to call
// more than once per connection.
func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected")
	}
}
