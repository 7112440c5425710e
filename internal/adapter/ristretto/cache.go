// Package ristretto provides the in-process tier of the stats cache.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a byte-value ristretto cache sized by total value bytes. It sits
// in front of the shared NATS KV tier, so hits here cost no network hop.
type Cache struct {
	inner *ristretto.Cache[string, []byte]
}

// New creates a cache holding at most maxBytes of values.
func New(maxBytes int64) (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// Admission counters for ~10x the expected entry count at
		// ~100 bytes per entry.
		NumCounters: maxBytes / 10,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get returns the value under key. Misses are not errors.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.inner.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value under key with the given TTL, costed at its byte length.
// Admission is probabilistic: ristretto may drop the write under pressure.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.inner.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete removes key from the cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.inner.Del(key)
	return nil
}

// Wait blocks until pending writes have been applied. Tests use it to make
// Set synchronous.
func (c *Cache) Wait() {
	c.inner.Wait()
}

// Close releases the cache's internal goroutines and buffers.
func (c *Cache) Close() {
	c.inner.Close()
}
