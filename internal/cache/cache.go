package cache

import (
	"sync"
	"time"
)

// Entry is a single cached value with its insertion time.
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
}

// Info describes the current state of a cache for operational endpoints.
type Info struct {
	Count int           `json:"count"`
	TTL   time.Duration `json:"ttl"`
	Keys  []string      `json:"keys"`
}

// Expiring is a concurrency-safe key/value store where entries expire after a
// fixed TTL. Expired entries are logically absent: Get and IsValid treat them
// the same as keys that were never inserted. There is no eviction beyond TTL;
// entries stay in the map until Clear.
type Expiring[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]Entry[V]

	// now is swappable so tests can control the clock.
	now func() time.Time
}

// New creates an Expiring cache whose entries are valid for ttl after Put.
func New[V any](ttl time.Duration) *Expiring[V] {
	return &Expiring[V]{
		ttl:     ttl,
		entries: make(map[string]Entry[V]),
		now:     time.Now,
	}
}

// IsValid reports whether key holds an unexpired entry.
func (c *Expiring[V]) IsValid(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	return c.now().Sub(e.StoredAt) < c.ttl
}

// Get returns the value for key if it exists and has not expired.
func (c *Expiring[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.StoredAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Put inserts or overwrites the value for key, resetting its StoredAt.
func (c *Expiring[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry[V]{Value: value, StoredAt: c.now()}
}

// Clear removes all entries.
func (c *Expiring[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry[V])
}

// Info returns a read-only snapshot of the cache state. Expired entries are
// counted because they still occupy memory until Clear.
func (c *Expiring[V]) Info() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}

	return Info{
		Count: len(c.entries),
		TTL:   c.ttl,
		Keys:  keys,
	}
}

// SetClock replaces the time source. Intended for tests.
func (c *Expiring[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}
