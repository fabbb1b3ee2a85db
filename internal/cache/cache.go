// Package cache holds a small TTL cache used for catalog listings.
package cache

import (
	"sync"
	"time"
)

// Clock lets tests control expiry.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a map whose entries expire ttl after they were set. A zero or
// negative ttl disables caching: Set becomes a no-op.
//
// Every Purge starts a new generation. Callers read Generation before loading
// a value and pass it to Set, so a value loaded before a purge is never stored
// after it.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	gen     uint64
	entries map[K]entry[V]
}

func New[K comparable, V any](ttl time.Duration, clock Clock) *TTL[K, V] {
	if clock == nil {
		clock = SystemClock
	}
	return &TTL[K, V]{ttl: ttl, clock: clock, entries: make(map[K]entry[V])}
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Generation returns the current purge generation.
func (c *TTL[K, V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Set stores value if no Purge happened since gen was read. It reports whether
// the value was stored.
func (c *TTL[K, V]) Set(key K, value V, gen uint64) bool {
	if c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	return true
}

// Purge drops every entry and starts a new generation.
func (c *TTL[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
	c.gen++
}

// size counts entries, including expired ones not yet evicted.
func (c *TTL[K, V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
