// Package broadcast defines the port for pushing real-time events to
// connected dashboard clients.
package broadcast

import "context"

// Broadcaster fans a typed event out to every connected dashboard client.
// Event types are dotted names like "workscope.stats_updated"; payloads must
// marshal to JSON. Delivery is best effort: implementations drop events for
// clients that cannot keep up rather than blocking the caller.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
