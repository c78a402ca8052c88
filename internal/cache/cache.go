// Package cache provides the process-local TTL caches used around provider calls.
// Entries are last-write-wins and staleness is bounded by the TTL, not by explicit
// invalidation, except where a write path evicts a key itself.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is a clock-driven key/value cache. The clock is injected so tests can
// advance time without sleeping.
type TTLCache struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

// New builds a TTLCache with the given entry lifetime.
func New(clock clockwork.Clock, ttl time.Duration) *TTLCache {
	return &TTLCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns a fresh value, or false when the key is absent or expired.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.clock.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// GetStale returns the value even after expiry. Used as the degraded path for
// provider tokens when the provider is unreachable.
func (c *TTLCache) GetStale(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Put stores a value, restarting its TTL. Last writer wins.
func (c *TTLCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
}

// Evict removes a key.
func (c *TTLCache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of stored entries, fresh or not.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep drops entries that expired more than one TTL ago. The grace window keeps
// recently expired tokens available to GetStale between sweeps.
func (c *TTLCache) Sweep() int {
	cutoff := c.clock.Now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.entries {
		if e.expiresAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
