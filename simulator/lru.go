package simulator

import (
	"slices"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// MissHandler is invoked with the missed key before it is inserted
type MissHandler func(key Key)

// CacheStats counts cache outcomes since construction
type CacheStats struct {
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Evictions int `json:"evictions"`
}

// LRUCache is a fixed-capacity least-recently-used set of keys.
// Only presence is tracked; there are no values.
type LRUCache struct {
	entries  *simplelru.LRU[Key, struct{}]
	capacity int
	onMiss   MissHandler
	stats    CacheStats
}

// NewLRUCache creates a cache holding at most capacity keys.
// onMiss may be nil.
func NewLRUCache(capacity int, onMiss MissHandler) (*LRUCache, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity(capacity)
	}
	entries, err := simplelru.NewLRU[Key, struct{}](capacity, nil)
	if err != nil {
		return nil, ErrInvalidCapacity(capacity)
	}
	return &LRUCache{
		entries:  entries,
		capacity: capacity,
		onMiss:   onMiss,
	}, nil
}

// Access references key and reports whether it was already cached.
// A hit promotes the key to most recently used. A miss calls the miss
// handler, inserts the key as most recently used and, if that overflows
// the capacity, evicts the least recently used key.
func (c *LRUCache) Access(key Key) bool {
	if _, ok := c.entries.Get(key); ok {
		c.stats.Hits++
		return true
	}
	if c.onMiss != nil {
		c.onMiss(key)
	}
	if evicted := c.entries.Add(key, struct{}{}); evicted {
		c.stats.Evictions++
	}
	c.stats.Misses++
	return false
}

// Contains reports presence without touching recency
func (c *LRUCache) Contains(key Key) bool {
	return c.entries.Contains(key)
}

// Keys returns cached keys, most recently used first
func (c *LRUCache) Keys() []Key {
	keys := c.entries.Keys()
	slices.Reverse(keys)
	return keys
}

// Len returns the number of cached keys
func (c *LRUCache) Len() int {
	return c.entries.Len()
}

// Capacity returns the configured maximum number of keys
func (c *LRUCache) Capacity() int {
	return c.capacity
}

// Stats returns a copy of the hit/miss/eviction counters
func (c *LRUCache) Stats() CacheStats {
	return c.stats
}
