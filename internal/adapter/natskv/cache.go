// Package natskv implements the cache port over a NATS JetStream key-value
// bucket. The bucket is shared: a stats snapshot computed by one dashboard
// replica is visible to all of them.
package natskv

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache adapts a JetStream KeyValue bucket to the cache port.
type Cache struct {
	kv jetstream.KeyValue
}

// New wraps an existing KV bucket. Entry expiry comes from the bucket's own
// TTL, configured at bucket creation.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Get returns the value under key, reporting absent keys as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Set writes value under key. The ttl argument is ignored; the bucket TTL
// governs expiry for every entry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, key, value)
	return err
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
