// ABOUTME: Tests for the event-id dedupe cache.
// ABOUTME: Validates TTL expiry, LRU eviction, sweep, clear, and concurrency safety.

package dedupe

import (
	"fmt"
	"sync"
	"time"

	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_IsDuplicate_FirstSeen(t *testing.T) {
	cache := New(5*time.Second, 100)
	defer cache.Close()

	// First call records the id and reports not-a-duplicate.
	assert.False(t, cache.IsDuplicate("evt-1"))

	// Second call within the TTL is a duplicate.
	assert.True(t, cache.IsDuplicate("evt-1"))
	assert.True(t, cache.IsDuplicate("evt-1"))
}

func TestCache_IsDuplicate_Expiry(t *testing.T) {
	cache := New(20*time.Millisecond, 100)
	defer cache.Close()

	assert.False(t, cache.IsDuplicate("evt-ttl"))
	assert.True(t, cache.IsDuplicate("evt-ttl"))

	// After the TTL the id is new again.
	time.Sleep(30 * time.Millisecond)
	assert.False(t, cache.IsDuplicate("evt-ttl"))

	// And the fresh sighting starts a new window.
	assert.True(t, cache.IsDuplicate("evt-ttl"))
}

func TestCache_Seen(t *testing.T) {
	cache := New(5*time.Second, 100)
	defer cache.Close()

	assert.False(t, cache.Seen("evt-2"))

	cache.MarkAsSeen("evt-2")
	assert.True(t, cache.Seen("evt-2"))

	// Seen does not mark.
	assert.False(t, cache.Seen("evt-3"))
	assert.False(t, cache.Seen("evt-3"))
}

func TestCache_MarkAsSeen_RefreshesWindow(t *testing.T) {
	cache := New(50*time.Millisecond, 100)
	defer cache.Close()

	cache.MarkAsSeen("evt-refresh")
	time.Sleep(30 * time.Millisecond)
	cache.MarkAsSeen("evt-refresh")
	time.Sleep(30 * time.Millisecond)

	// Past the original window but inside the refreshed one.
	assert.True(t, cache.Seen("evt-refresh"))
}

func TestCache_EvictsSingleOldest(t *testing.T) {
	cache := New(5*time.Second, 3)
	defer cache.Close()

	cache.MarkAsSeen("a")
	time.Sleep(time.Millisecond)
	cache.MarkAsSeen("b")
	time.Sleep(time.Millisecond)
	cache.MarkAsSeen("c")

	// At capacity; a fourth id evicts only the oldest.
	cache.MarkAsSeen("d")

	assert.False(t, cache.Seen("a"), "oldest entry should be evicted")
	assert.True(t, cache.Seen("b"))
	assert.True(t, cache.Seen("c"))
	assert.True(t, cache.Seen("d"))
	assert.Equal(t, 3, cache.Len())

	cache.MarkAsSeen("e")
	assert.False(t, cache.Seen("b"), "next oldest should be evicted")
	assert.True(t, cache.Seen("c"))
}

func TestCache_PurgeExpired(t *testing.T) {
	cache := New(10*time.Millisecond, 100)
	defer cache.Close()

	cache.MarkAsSeen("p-1")
	cache.MarkAsSeen("p-2")
	cache.MarkAsSeen("p-3")
	assert.Equal(t, 3, cache.Len())

	time.Sleep(20 * time.Millisecond)

	// Trigger the sweep body directly rather than racing the ticker.
	cache.purgeExpired()
	assert.Equal(t, 0, cache.Len())
}

func TestCache_Clear(t *testing.T) {
	cache := New(5*time.Second, 100)
	defer cache.Close()

	cache.MarkAsSeen("x")
	cache.MarkAsSeen("y")
	cache.Clear()

	assert.Equal(t, 0, cache.Len())
	assert.False(t, cache.Seen("x"))
	assert.False(t, cache.IsDuplicate("x"), "cleared id is new again")
}

func TestCache_IsDuplicate_Atomic(t *testing.T) {
	cache := New(5*time.Second, 1000)
	defer cache.Close()

	const goroutines = 100

	var winners int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if !cache.IsDuplicate("contested") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners, "exactly one caller should see the id first")
}

func TestCache_Concurrent(t *testing.T) {
	cache := New(5*time.Second, 1000)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("evt-%d-%d", id%7, j%11)
				cache.IsDuplicate(key)
				cache.Seen(key)
				cache.MarkAsSeen(key)
			}
		}(i)
	}
	wg.Wait()

	cache.MarkAsSeen("after")
	assert.True(t, cache.Seen("after"))
}

func TestCache_Close(t *testing.T) {
	cache := New(5*time.Second, 100)

	cache.MarkAsSeen("before-close")
	cache.Close()
	cache.Close() // second close must not panic

	assert.True(t, cache.Seen("before-close"))
}

func TestCache_Defaults(t *testing.T) {
	cache := New(0, 0)
	defer cache.Close()

	assert.Equal(t, DefaultTTL, cache.ttl)
	assert.Equal(t, DefaultMaxSize, cache.maxSize)
}
