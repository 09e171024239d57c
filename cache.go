package daox

import (
	"context"
	"fmt"
	"time"
)

// Cache is the interface for caching loaded entities.
// Users should implement this interface with their preferred caching
// solution (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a cached entity or listing.
type CacheKey struct {
	Table string
	Op    string
	Key   any
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%v", k.Table, k.Op, k.Key)
}

// Prefix returns the key prefix shared by all entries of the table,
// used for invalidation after a mutation.
func (k CacheKey) Prefix() string {
	return k.Table + ":"
}
