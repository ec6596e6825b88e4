// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
// The registry caching layer uses it to keep recently resolved tenant and
// organisation records in process memory for a short time, bounding both
// memory (capacity) and staleness (TTL).
//
// # Usage
//
//	c := cache.NewLRUCache[string, []byte](1024)
//	c.PutWithTTL("tenant:slug:acme", payload, 30*time.Second)
//
//	if v, ok := c.Get("tenant:slug:acme"); ok {
//		...
//	}
//
// Get, Put and Remove are O(1). Expired entries are dropped lazily on Get or
// eagerly through PurgeExpired.
package cache
