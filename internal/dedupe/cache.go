// ABOUTME: TTL + LRU cache of recently-seen event identifiers.
// ABOUTME: Backs the event bus so response-path and push-path copies of one event collapse to one dispatch.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultTTL is the window during which an event id is treated as
	// already seen. Matches the server's push-echo latency envelope.
	DefaultTTL = 5 * time.Second

	// DefaultMaxSize bounds the cache; the single oldest entry is evicted
	// when a new id arrives at capacity.
	DefaultMaxSize = 1000
)

// node is the value stored in the insertion-order list.
type node struct {
	key    string
	seenAt time.Time
}

// Cache is a thread-safe, TTL-based, size-limited cache of event ids.
// Insertion order is kept in a doubly-linked list so eviction of the
// oldest entry is O(1).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*list.Element // key -> element whose Value is *node
	order   *list.List               // oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a dedupe cache. A background sweep removes expired entries
// every ttl so stale ids do not hold memory indefinitely.
func New(ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &Cache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// IsDuplicate atomically checks whether id has been seen within the TTL
// window and marks it seen if not. Returns true for a duplicate. An entry
// older than the TTL is treated as new again, no matter how often it was
// queried before expiry.
func (c *Cache) IsDuplicate(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[id]; ok {
		n := elem.Value.(*node)
		if time.Since(n.seenAt) < c.ttl {
			return true
		}
	}
	c.markLocked(id)
	return false
}

// Seen reports whether id is currently within the TTL window, without
// marking it.
func (c *Cache) Seen(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elem, ok := c.entries[id]
	if !ok {
		return false
	}
	return time.Since(elem.Value.(*node).seenAt) < c.ttl
}

// MarkAsSeen records id without checking it first. Re-marking an existing
// id refreshes its timestamp and moves it to the back of the eviction order.
func (c *Cache) MarkAsSeen(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markLocked(id)
}

func (c *Cache) markLocked(id string) {
	now := time.Now()

	if elem, ok := c.entries[id]; ok {
		elem.Value.(*node).seenAt = now
		c.order.MoveToBack(elem)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[id] = c.order.PushBack(&node{key: id, seenAt: now})
}

// evictOldestLocked removes the single oldest entry. Must be called with
// mu held.
func (c *Cache) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}
	delete(c.entries, front.Value.(*node).key)
	c.order.Remove(front)
}

// Len returns the number of tracked ids, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries. Intended for session reset and tests.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// sweep runs in a background goroutine, purging expired entries once per
// TTL interval.
func (c *Cache) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.purgeExpired()
		case <-c.done:
			return
		}
	}
}

// purgeExpired removes every entry older than the TTL. The order list has
// the oldest entries at the front, so the scan stops at the first live one.
func (c *Cache) purgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for {
		front := c.order.Front()
		if front == nil {
			break
		}
		n := front.Value.(*node)
		if now.Sub(n.seenAt) <= c.ttl {
			break
		}
		delete(c.entries, n.key)
		c.order.Remove(front)
	}
}

// Close stops the background sweep goroutine. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
