// Package cache provides a tiny single-value TTL cache used to bound
// redundant table reads within a request-handling burst.
//
// The predecessor system kept an ambient mutable cache object shared across
// invocations, which made staleness bugs hard to reason about. Here the
// cache is an explicit component injected into the service that needs it,
// with an Invalidate call sites trigger right after writing to the cached
// table. The clock is always passed in so expiry is testable.
package cache

import (
	"sync"
	"time"
)

// Value caches one value of type T for a fixed TTL. Safe for concurrent use.
//
// A TTL <= 0 disables caching entirely: Get never hits and Put is a no-op,
// which gives tests and single-shot tools a way to opt out without branching
// at the call sites.
type Value[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	val     T
	ok      bool
	fetched time.Time
}

// New constructs a Value cache with the given TTL.
func New[T any](ttl time.Duration) *Value[T] {
	return &Value[T]{ttl: ttl}
}

// Get returns the cached value when it was stored less than TTL ago.
func (c *Value[T]) Get(now time.Time) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ok || c.ttl <= 0 || now.Sub(c.fetched) >= c.ttl {
		var zero T
		return zero, false
	}
	return c.val, true
}

// Put stores v, stamping it with now.
func (c *Value[T]) Put(v T, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.val, c.ok, c.fetched = v, true, now
	c.mu.Unlock()
}

// Invalidate drops the cached value. Call after any write to the table this
// cache fronts so reads within the same logical operation see the new row.
func (c *Value[T]) Invalidate() {
	c.mu.Lock()
	c.ok = false
	var zero T
	c.val = zero
	c.mu.Unlock()
}
