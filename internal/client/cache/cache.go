// Package cache implements a small in-memory TTL cache. The client holds
// two independent instances: a content bundle cache with a short TTL and a
// scan-validation cache with a long one. Eviction is lazy, on read; there
// is no background sweeper.
package cache

import (
	"sync"
	"time"

	"github.com/memoria-app/memoria/internal/timex"
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache maps string keys to values of type V with one fixed TTL per
// instance. Safe for concurrent use.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   timex.Clock
	entries map[string]entry[V]
}

func New[V any](ttl time.Duration, clock timex.Clock) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the fresh value for key. An expired entry is evicted and
// reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.clock.Now().Sub(e.insertedAt) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetStale returns the value for key even past its TTL, with stale=true in
// that case. It never evicts. This is the offline degraded path: an expired
// entry served as a best-effort fallback must be flagged, never presented
// as fresh.
func (c *Cache[V]) GetStale(key string) (value V, stale bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false, false
	}
	return e.value, c.clock.Now().Sub(e.insertedAt) >= c.ttl, true
}

// Put stores value under key, unconditionally overwriting and restarting
// the TTL.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, insertedAt: c.clock.Now()}
}

// Delete drops the entry for key, if any.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}
