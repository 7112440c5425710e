// Package tiered layers the in-process stats cache in front of the shared
// NATS KV tier so hot dashboard reads stay local to each replica.
package tiered

import (
	"context"
	"time"

	"github.com/playforge/levelboard/internal/port/cache"
)

// Cache reads through two tiers: a process-local tier answering hot reads
// and a shared tier visible to every replica. A shared-tier hit is copied
// into the local tier so the next read for the same key stays in process.
type Cache struct {
	local       cache.Cache
	shared      cache.Cache
	localExpire time.Duration
}

// New wires the local and shared tiers together. localExpire bounds how long
// a backfilled entry serves from the local tier before the shared tier is
// consulted again.
func New(local, shared cache.Cache, localExpire time.Duration) *Cache {
	return &Cache{local: local, shared: shared, localExpire: localExpire}
}

// Get answers from the local tier when it can. On a local miss the shared
// tier is consulted, and a hit there is backfilled locally with the
// configured localExpire.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok, err := c.local.Get(ctx, key)
	if err != nil || ok {
		return val, ok, err
	}

	val, ok, err = c.shared.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	// Backfill failures are invisible to the caller; the entry still served.
	_ = c.local.Set(ctx, key, val, c.localExpire)
	return val, true, nil
}

// Set writes the shared tier first. The local tier is only updated once the
// value is visible to the other replicas.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.shared.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.local.Set(ctx, key, value, ttl)
}

// Delete clears the key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.local.Delete(ctx, key); err != nil {
		return err
	}
	return c.shared.Delete(ctx, key)
}
