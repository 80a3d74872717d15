// ABOUTME: Normalized in-memory entity store with team-scoped ordered id lists.
// ABOUTME: One instance per client session; mutators are idempotent and duplicate-safe.

package state

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
)

// emptyIDs is the shared result for every absent-key id-list read. Reactive
// consumers compare reads by identity, so "no data yet" must not allocate a
// fresh slice per call.
var emptyIDs = make([]string, 0)

// Store is the normalized client-side entity store. Every id present in a
// relationship list resolves in the corresponding entity map; the converse
// is not required (an entity may exist unlinked mid-reconciliation).
type Store struct {
	mu sync.RWMutex

	messages map[string]*Message
	insights map[string]*Insight
	teams    map[string]*Team
	users    map[string]*User

	teamMessages map[string][]string
	teamInsights map[string][]string
	teamMembers  map[string][]string

	online map[string]map[string]struct{}
	typing map[string]map[string]struct{}

	// correlation id -> temp id, alive only between optimistic insertion
	// and confirmation or rollback.
	pendingMessages map[string]string
	pendingInsights map[string]string

	logger *slog.Logger
}

// NewStore creates an empty store. Pass nil logger for default.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger.With("component", "state")}
	s.initLocked()
	return s
}

func (s *Store) initLocked() {
	s.messages = make(map[string]*Message)
	s.insights = make(map[string]*Insight)
	s.teams = make(map[string]*Team)
	s.users = make(map[string]*User)
	s.teamMessages = make(map[string][]string)
	s.teamInsights = make(map[string][]string)
	s.teamMembers = make(map[string][]string)
	s.online = make(map[string]map[string]struct{})
	s.typing = make(map[string]map[string]struct{})
	s.pendingMessages = make(map[string]string)
	s.pendingInsights = make(map[string]string)
}

// Reset drops all entities, relationships, and optimistic tracking. Called
// on full session teardown.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked()
}

// idsFor returns the shared empty slice for absent keys and a copy for
// present ones, so callers can never mutate store internals.
func idsFor(lists map[string][]string, key string) []string {
	ids, ok := lists[key]
	if !ok || len(ids) == 0 {
		return emptyIDs
	}
	return slices.Clone(ids)
}

// linkLocked appends childID to the parent's list if absent. Append order,
// not creation order.
func linkLocked(lists map[string][]string, parentID, childID string) {
	ids := lists[parentID]
	if slices.Contains(ids, childID) {
		return
	}
	lists[parentID] = append(ids, childID)
}

// unlinkLocked filters childID out of the parent's list.
func unlinkLocked(lists map[string][]string, parentID, childID string) {
	ids := lists[parentID]
	i := slices.Index(ids, childID)
	if i < 0 {
		return
	}
	lists[parentID] = slices.Delete(ids, i, i+1)
}

// swapLocked replaces oldID with newID at the same position in the parent's
// list. If newID is already linked, the old slot is dropped instead of
// duplicating.
func swapLocked(lists map[string][]string, parentID, oldID, newID string) {
	ids := lists[parentID]
	i := slices.Index(ids, oldID)
	if i < 0 {
		linkLocked(lists, parentID, newID)
		return
	}
	if slices.Contains(ids, newID) {
		lists[parentID] = slices.Delete(ids, i, i+1)
		return
	}
	ids[i] = newID
}

// sortedSetIDs returns the members of a string set, sorted, or the shared
// empty slice when the set is absent or empty.
func sortedSetIDs(sets map[string]map[string]struct{}, key string) []string {
	set, ok := sets[key]
	if !ok || len(set) == 0 {
		return emptyIDs
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func addToSet(sets map[string]map[string]struct{}, key, member string) {
	set, ok := sets[key]
	if !ok {
		set = make(map[string]struct{})
		sets[key] = set
	}
	set[member] = struct{}{}
}

func removeFromSet(sets map[string]map[string]struct{}, key, member string) {
	set, ok := sets[key]
	if !ok {
		return
	}
	delete(set, member)
	if len(set) == 0 {
		delete(sets, key)
	}
}
