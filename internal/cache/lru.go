// Package cache holds the lookup caches: a bounded in-process LRU and a
// Redis-backed store that several processes can share.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a key/value cache. Implementations decide expiry.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V) error
}

type lruEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	prev      *lruEntry[V]
	next      *lruEntry[V]
}

// LRU is a thread-safe least recently used cache with a fixed TTL per entry.
// Expired entries are dropped lazily on access or when they reach the tail.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruEntry[V]

	// head.next is the most recently used entry, tail.prev the least.
	head *lruEntry[V]
	tail *lruEntry[V]

	now func() time.Time
}

func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	c := &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry[V], capacity),
		head:     &lruEntry[V]{},
		tail:     &lruEntry[V]{},
		now:      time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *LRU[V]) Get(_ context.Context, key string) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.remove(e)
		return zero, false, nil
	}
	c.moveToFront(e)
	return e.value, true, nil
}

func (c *LRU[V]) Set(_ context.Context, key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return nil
	}

	e := &lruEntry[V]{key: key, value: value, expiresAt: expiresAt}
	c.items[key] = e
	c.insertFront(e)

	for len(c.items) > c.capacity {
		c.remove(c.tail.prev)
	}
	return nil
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[V]) insertFront(e *lruEntry[V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[V]) unlink(e *lruEntry[V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *LRU[V]) moveToFront(e *lruEntry[V]) {
	c.unlink(e)
	c.insertFront(e)
}

func (c *LRU[V]) remove(e *lruEntry[V]) {
	c.unlink(e)
	delete(c.items, e.key)
}
