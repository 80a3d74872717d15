// ABOUTME: Tests for bus dispatch ordering, wildcard tiers, dedup short-circuit, and panic isolation.

package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-client/internal/dedupe"
	"github.com/2389/coven-client/internal/state"
)

func created(id string) Event {
	return NewMessageCreated(&state.Message{
		ID:      "m-1",
		TeamID:  "team-a",
		Content: "hi",
	}, SourcePush, id, "")
}

func TestBus_DispatchOrder(t *testing.T) {
	bus := NewBus(nil, nil, nil)

	var order []string
	bus.Subscribe("*", func(Event) { order = append(order, "universal-1") })
	bus.Subscribe("message:*", func(Event) { order = append(order, "category-1") })
	bus.Subscribe("message:created", func(Event) { order = append(order, "exact-1") })
	bus.Subscribe("message:created", func(Event) { order = append(order, "exact-2") })
	bus.Subscribe("message:*", func(Event) { order = append(order, "category-2") })
	bus.Subscribe("*", func(Event) { order = append(order, "universal-2") })

	bus.Publish(created("evt-1"))

	// Exact tier first, then category wildcard, then universal; within
	// each tier, subscription order.
	assert.Equal(t, []string{
		"exact-1", "exact-2",
		"category-1", "category-2",
		"universal-1", "universal-2",
	}, order)
}

func TestBus_CategoryWildcardScoping(t *testing.T) {
	bus := NewBus(nil, nil, nil)

	var got []Type
	bus.Subscribe("message:*", func(e Event) { got = append(got, e.Type) })

	bus.Publish(created("evt-1"))
	bus.Publish(NewTyping("u-1", "team-a", true, SourcePush, "evt-2"))

	assert.Equal(t, []Type{TypeMessageCreated}, got, "typing events must not match message:*")
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil, nil, nil)

	var calls int
	unsub := bus.Subscribe("message:created", func(Event) { calls++ })

	bus.Publish(created("evt-1"))
	unsub()
	bus.Publish(created("evt-2"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Stats().Subscribers)

	// Double unsubscribe is harmless.
	unsub()
	assert.Equal(t, 0, bus.Stats().Subscribers)
}

func TestBus_DedupeShortCircuits(t *testing.T) {
	cache := dedupe.New(5*time.Second, 100)
	defer cache.Close()
	bus := NewBus(cache, nil, nil)

	var calls int
	bus.Subscribe("message:created", func(Event) { calls++ })

	// Same event id via request path then push path: one invocation set.
	assert.True(t, bus.Publish(created("evt-dup")))
	assert.False(t, bus.Publish(created("evt-dup")))

	assert.Equal(t, 1, calls)
	stats := bus.Stats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(1), stats.Deduplicated)
}

func TestBus_DedupeExpiryAllowsRedelivery(t *testing.T) {
	cache := dedupe.New(20*time.Millisecond, 100)
	defer cache.Close()
	bus := NewBus(cache, nil, nil)

	var calls int
	bus.Subscribe("message:created", func(Event) { calls++ })

	bus.Publish(created("evt-x"))
	bus.Publish(created("evt-x"))
	require.Equal(t, 1, calls)

	time.Sleep(30 * time.Millisecond)
	bus.Publish(created("evt-x"))
	assert.Equal(t, 2, calls, "past the TTL the id dispatches again")
}

func TestBus_SubscriberPanicIsolated(t *testing.T) {
	bus := NewBus(nil, nil, nil)

	var after int
	bus.Subscribe("message:created", func(Event) { panic("boom") })
	bus.Subscribe("message:created", func(Event) { after++ })
	bus.Subscribe("*", func(Event) { after++ })

	assert.NotPanics(t, func() { bus.Publish(created("evt-1")) })

	assert.Equal(t, 2, after, "remaining subscribers still run")
	stats := bus.Stats()
	assert.Equal(t, uint64(1), stats.Faults)
	assert.Equal(t, uint64(1), stats.Published, "a faulting subscriber must not corrupt bus totals")
}

func TestBus_UnsubscribeDuringDispatch(t *testing.T) {
	bus := NewBus(nil, nil, nil)

	var second int
	var unsub2 func()
	bus.Subscribe("message:created", func(Event) { unsub2() })
	unsub2 = bus.Subscribe("message:created", func(Event) { second++ })

	// The in-flight dispatch loop already holds the old subscriber list.
	bus.Publish(created("evt-1"))
	assert.Equal(t, 1, second)

	// Future publishes skip the removed subscriber.
	bus.Publish(created("evt-2"))
	assert.Equal(t, 1, second)
}

func TestBus_Stats_PerTopic(t *testing.T) {
	bus := NewBus(nil, nil, nil)

	bus.Publish(created("evt-1"))
	bus.Publish(created("evt-2"))
	bus.Publish(NewTyping("u-1", "team-a", true, SourcePush, "evt-3"))

	stats := bus.Stats()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(2), stats.PerTopic[TypeMessageCreated])
	assert.Equal(t, uint64(1), stats.PerTopic[TypeTypingStarted])
}

func TestParseTopic(t *testing.T) {
	tier, key := parseTopic("*")
	assert.Equal(t, tierUniversal, tier)

	tier, key = parseTopic("message:*")
	assert.Equal(t, tierCategory, tier)
	assert.Equal(t, "message", key)

	tier, key = parseTopic("message:created")
	assert.Equal(t, tierExact, tier)
	assert.Equal(t, "message:created", key)
}
