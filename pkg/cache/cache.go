// Package cache provides the short-TTL keyed store backing the order book
// hot path and request-response memoization.
package cache

import "time"

// Cache is a TTL key-value store. Reads are single-operation and
// non-blocking; writes are last-writer-wins.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found or expired.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Close closes the cache and releases resources.
	Close()
}
