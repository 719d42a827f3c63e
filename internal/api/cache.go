package api

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 30 * time.Second
)

// cacheKey hashes the request path (plus any variant string) into a
// cache key.
func cacheKey(parts ...string) uint64 {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0}) // separator
	}
	return h.Sum64()
}

// lruEntry is a doubly-linked list node for the LRU cache.
type lruEntry[T any] struct {
	key       uint64
	value     T
	expiresAt time.Time
	prev      *lruEntry[T]
	next      *lruEntry[T]
}

// resultCache provides bounded, TTL'd LRU caching for idempotent lookup
// responses (categories and similar slow-moving lists).
// Thread-safe with Mutex (both Get and Put mutate LRU order).
type resultCache[T any] struct {
	mu      sync.Mutex
	entries map[uint64]*lruEntry[T]
	head    *lruEntry[T] // most recently used
	tail    *lruEntry[T] // least recently used
	maxSize int
	ttl     time.Duration
}

// newResultCache creates an LRU cache with the given max size and TTL.
func newResultCache[T any](maxSize int, ttl time.Duration) *resultCache[T] {
	return &resultCache[T]{
		entries: make(map[uint64]*lruEntry[T], maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a cached value. Returns (value, true) on hit, (zero,
// false) on miss or expiry. On hit, the entry is promoted to the head.
func (c *resultCache[T]) Get(key uint64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		if time.Now().After(e.expiresAt) {
			c.unlinkLocked(e)
			delete(c.entries, key)
			var zero T
			return zero, false
		}
		c.moveToHeadLocked(e)
		return e.value, true
	}
	var zero T
	return zero, false
}

// Put stores a value. If at capacity, the least recently used entry is
// evicted.
func (c *resultCache[T]) Put(key uint64, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(c.ttl)
		c.moveToHeadLocked(e)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}

	e := &lruEntry[T]{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// Clear empties the cache. Called on logout and session invalidation.
func (c *resultCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*lruEntry[T], c.maxSize)
	c.head = nil
	c.tail = nil
}

// Size returns current cache size.
func (c *resultCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// moveToHeadLocked moves an existing entry to the head. Must be called with lock held.
func (c *resultCache[T]) moveToHeadLocked(e *lruEntry[T]) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

// pushHeadLocked inserts an entry at the head. Must be called with lock held.
func (c *resultCache[T]) pushHeadLocked(e *lruEntry[T]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

// unlinkLocked removes an entry from the linked list. Must be called with lock held.
func (c *resultCache[T]) unlinkLocked(e *lruEntry[T]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

// evictTailLocked removes the least recently used entry. Must be called with lock held.
func (c *resultCache[T]) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}
