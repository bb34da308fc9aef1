// Package cache provides a generic, thread-safe in-process TTL cache.
//
// The cache is used two ways inside walletsync: as the short-TTL memo layer
// in front of the profile store, and as the building block for the cache
// store's in-process fallback backend. Entries expire by wall clock, checked
// lazily on read and swept by a background cleanup goroutine.
//
// Statistics are always enabled for observability; Prometheus export is
// opt-in via functional options.
package cache

import (
	"time"

	"github.com/c360/walletsync/errors"
)

// Cache represents a generic TTL cache parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found and
	// not expired, zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the cache's default TTL. Returns true if a new
	// entry was created, false if an existing one was updated.
	Set(key string, value V) (bool, error)

	// SetWithTTL stores a value with an explicit TTL overriding the default.
	SetWithTTL(key string, value V, ttl time.Duration) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	// Deleting an absent key is a no-op, not an error.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries, including any expired
	// entries not yet swept.
	Size() int

	// Keys returns all unexpired keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics.
	Stats() *Statistics

	// Close shuts down the cache and its background cleanup goroutine.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	if len(key) > 1024 {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key exceeds 1024 bytes")
	}
	return nil
}
