// Package cache defines the port interface for caching stats snapshots and
// other derived responses.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching. Get reports a miss via
// the bool, reserving the error for transport failures. Implementations may
// treat ttl as advisory: the NATS KV tier applies a single bucket-wide TTL,
// and the in-process tier may evict entries under memory pressure.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
