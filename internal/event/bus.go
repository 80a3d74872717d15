// ABOUTME: Typed pub/sub bus with exact, category-wildcard, and universal subscription tiers.
// ABOUTME: Consults the dedupe cache before dispatch; a duplicate short-circuits with no delivery.

package event

import (
	"log/slog"
	"sync"

	"github.com/2389/coven-client/internal/metrics"
)

// Handler is a subscriber callback. Dispatch is synchronous on the
// publisher's goroutine, in deterministic order: exact subscribers first,
// then category wildcards, then universal, subscription order within each
// tier. UI consumers rely on store-updating subscribers (registered first
// by the bridge) having run before their own.
type Handler func(Event)

// Deduper is the duplicate-suppression contract the bus consults.
type Deduper interface {
	IsDuplicate(id string) bool
}

// topic match tiers, resolved once at subscribe time. No string pattern
// evaluation happens at publish time.
const (
	tierExact = iota
	tierCategory
	tierUniversal
)

type subscriber struct {
	id uint64
	fn Handler
}

// Stats is a snapshot of bus counters.
type Stats struct {
	Published    uint64
	Deduplicated uint64
	Faults       uint64
	Subscribers  int
	PerTopic     map[Type]uint64
}

// Bus routes canonical events to subscribers. Construct with NewBus.
type Bus struct {
	mu        sync.RWMutex
	exact     map[Type][]subscriber
	category  map[string][]subscriber
	universal []subscriber
	nextID    uint64
	count     int

	dedupe  Deduper
	logger  *slog.Logger
	rec     metrics.Recorder
	stats   Stats
	statsMu sync.Mutex
}

// NewBus creates a bus. dedupe may be nil (no suppression, used in tests);
// rec may be nil for no metrics; logger nil for default.
func NewBus(dedupe Deduper, rec metrics.Recorder, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Bus{
		exact:    make(map[Type][]subscriber),
		category: make(map[string][]subscriber),
		dedupe:   dedupe,
		logger:   logger.With("component", "bus"),
		rec:      rec,
		stats:    Stats{PerTopic: make(map[Type]uint64)},
	}
}

// Subscribe registers fn for a topic: an exact type ("message:created"), a
// one-level category wildcard ("message:*"), or the universal topic ("*").
// Returns an unsubscribe function. Unsubscribing only prevents future
// dispatch; an in-flight dispatch loop holding the old subscriber list is
// not interrupted.
func (b *Bus) Subscribe(topic string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := subscriber{id: b.nextID, fn: fn}
	b.count++

	tier, key := parseTopic(topic)
	switch tier {
	case tierUniversal:
		b.universal = append(b.universal, sub)
	case tierCategory:
		b.category[key] = append(b.category[key], sub)
	default:
		t := Type(key)
		b.exact[t] = append(b.exact[t], sub)
	}

	id := sub.id
	return func() { b.unsubscribe(tier, key, id) }
}

// parseTopic resolves a topic string to its match tier at subscribe time.
func parseTopic(topic string) (tier int, key string) {
	if topic == "*" {
		return tierUniversal, ""
	}
	if n := len(topic); n > 2 && topic[n-2:] == ":*" {
		return tierCategory, topic[:n-2]
	}
	return tierExact, topic
}

func (b *Bus) unsubscribe(tier int, key string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	drop := func(subs []subscriber) ([]subscriber, bool) {
		for i, s := range subs {
			if s.id == id {
				return append(subs[:i:i], subs[i+1:]...), true
			}
		}
		return subs, false
	}

	var removed bool
	switch tier {
	case tierUniversal:
		b.universal, removed = drop(b.universal)
	case tierCategory:
		b.category[key], removed = drop(b.category[key])
	default:
		t := Type(key)
		b.exact[t], removed = drop(b.exact[t])
	}
	if removed {
		b.count--
	}
}

// Publish dispatches e to matching subscribers. Returns false when the
// event id was already seen within the dedup window; the duplicate is
// counted and nothing is dispatched. A panicking subscriber is caught and
// logged and does not prevent delivery to the remaining subscribers.
func (b *Bus) Publish(e Event) bool {
	if b.dedupe != nil && e.ID != "" && b.dedupe.IsDuplicate(e.ID) {
		b.statsMu.Lock()
		b.stats.Deduplicated++
		b.statsMu.Unlock()
		b.rec.EventDeduplicated(string(e.Type))
		b.logger.Debug("duplicate event suppressed",
			"type", e.Type,
			"event_id", e.ID,
			"source", e.Source)
		return false
	}

	b.mu.RLock()
	targets := make([]subscriber, 0,
		len(b.exact[e.Type])+len(b.category[e.Type.Category()])+len(b.universal))
	targets = append(targets, b.exact[e.Type]...)
	targets = append(targets, b.category[e.Type.Category()]...)
	targets = append(targets, b.universal...)
	b.mu.RUnlock()

	for _, sub := range targets {
		b.dispatch(sub, e)
	}

	b.statsMu.Lock()
	b.stats.Published++
	b.stats.PerTopic[e.Type]++
	b.statsMu.Unlock()
	b.rec.EventPublished(string(e.Type))
	return true
}

// dispatch invokes one subscriber, isolating panics from the publisher and
// from the remaining subscribers.
func (b *Bus) dispatch(sub subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.statsMu.Lock()
			b.stats.Faults++
			b.statsMu.Unlock()
			b.rec.SubscriberFault(string(e.Type))
			b.logger.Error("subscriber panicked",
				"type", e.Type,
				"event_id", e.ID,
				"panic", r)
		}
	}()
	sub.fn(e)
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	count := b.count
	b.mu.RUnlock()

	b.statsMu.Lock()
	defer b.statsMu.Unlock()

	snap := Stats{
		Published:    b.stats.Published,
		Deduplicated: b.stats.Deduplicated,
		Faults:       b.stats.Faults,
		Subscribers:  count,
		PerTopic:     make(map[Type]uint64, len(b.stats.PerTopic)),
	}
	for t, n := range b.stats.PerTopic {
		snap.PerTopic[t] = n
	}
	return snap
}
