package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Backend names accepted by configuration.
const (
	BackendNone      = "none"
	BackendInMemory  = "in_memory"
	BackendMemcached = "memcached"
)

// Cache stores upstream response bodies keyed by request URL.
// Get returns (body, true, nil) on hit and (nil, false, nil) on miss or expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger is implemented by backends with a reachability check (used by /health).
type Pinger interface {
	Ping() error
}

// InMemoryCache implements Cache on a ristretto cache bounded by entry count.
type InMemoryCache struct {
	store *ristretto.Cache[string, []byte]
}

// NewInMemoryCache creates an in-memory cache holding at most maxEntries bodies.
func NewInMemoryCache(maxEntries int64) (*InMemoryCache, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create in-memory cache: %w", err)
	}
	return &InMemoryCache{store: store}, nil
}

// Get implements Cache.Get. Expired entries are never returned.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	value, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

// Set implements Cache.Set. Each entry costs 1 against maxEntries.
// Non-positive TTLs are ignored. The write is visible to Get once Set returns.
func (c *InMemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.store.SetWithTTL(key, stored, 1, ttl)
	c.store.Wait()
	return nil
}

// Close stops the cache's background goroutines. Call during shutdown.
func (c *InMemoryCache) Close() {
	c.store.Close()
}
