// ABOUTME: Tests for optimistic insert, confirm-in-place, rollback, and the push-echo content fallback.
// ABOUTME: The insight path shares the same shape; insights_test.go covers its distinct pieces.

package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_OptimisticConvergence(t *testing.T) {
	s := NewStore(nil)

	s.AddMessage(msg("m-0", "team-a", "earlier"))
	s.AddMessageOptimistic(msg("temp-1", "team-a", "hi"), "corr-1")
	s.AddMessage(msg("m-9", "team-a", "later"))

	require.Equal(t, []string{"m-0", "temp-1", "m-9"}, s.MessageIDs("team-a"))

	s.ConfirmMessage("corr-1", msg("srv-9", "team-a", "hi"))

	// Server id takes the temp id's slot; no trace of the temp entity.
	assert.Equal(t, []string{"m-0", "srv-9", "m-9"}, s.MessageIDs("team-a"))
	_, ok := s.Message("temp-1")
	assert.False(t, ok)
	got, ok := s.Message("srv-9")
	require.True(t, ok)
	assert.Equal(t, "hi", got.Content)
	_, ok = s.PendingMessageID("corr-1")
	assert.False(t, ok)
}

func TestStore_ConfirmUnknownCorrelation_PlainAdd(t *testing.T) {
	s := NewStore(nil)

	s.ConfirmMessage("corr-unknown", msg("srv-1", "team-a", "hello"))

	assert.Equal(t, []string{"srv-1"}, s.MessageIDs("team-a"))
}

func TestStore_RollbackCleanliness(t *testing.T) {
	s := NewStore(nil)

	s.AddMessage(msg("m-0", "team-a", "kept"))
	before := s.MessageIDs("team-a")

	s.AddMessageOptimistic(msg("temp-x", "team-a", "doomed"), "corr-2")
	s.RollbackMessage("temp-x")

	assert.Equal(t, before, s.MessageIDs("team-a"))
	_, ok := s.Message("temp-x")
	assert.False(t, ok)
	_, ok = s.PendingMessageID("corr-2")
	assert.False(t, ok)
}

func TestStore_RollbackUnknownTemp_NoOp(t *testing.T) {
	s := NewStore(nil)

	s.AddMessage(msg("m-1", "team-a", "hello"))
	s.RollbackMessage("temp-never-existed")

	assert.Equal(t, []string{"m-1"}, s.MessageIDs("team-a"))
}

func TestStore_PushEchoContentFallback(t *testing.T) {
	s := NewStore(nil)

	s.AddMessageOptimistic(msg("temp-1", "team-a", "hi"), "corr-1")

	// Push echo without a correlation id: same team, same content.
	s.AddMessage(msg("srv-9", "team-a", "hi"))

	assert.Equal(t, []string{"srv-9"}, s.MessageIDs("team-a"))
	_, ok := s.Message("temp-1")
	assert.False(t, ok)
	_, ok = s.PendingMessageID("corr-1")
	assert.False(t, ok)
}

func TestStore_PushEchoFallback_DifferentTeamOrContent(t *testing.T) {
	s := NewStore(nil)

	s.AddMessageOptimistic(msg("temp-1", "team-a", "hi"), "corr-1")

	// Different content: a genuinely new message, no reconciliation.
	s.AddMessage(msg("srv-1", "team-a", "different"))
	// Same content but another team: also no reconciliation.
	s.AddMessage(msg("srv-2", "team-b", "hi"))

	assert.Equal(t, []string{"temp-1", "srv-1"}, s.MessageIDs("team-a"))
	assert.Equal(t, []string{"srv-2"}, s.MessageIDs("team-b"))
	_, ok := s.PendingMessageID("corr-1")
	assert.True(t, ok, "optimistic entry must remain outstanding")
}

func TestStore_ConfirmThenLateEcho_NoDuplicate(t *testing.T) {
	s := NewStore(nil)

	s.AddMessageOptimistic(msg("temp-1", "team-a", "hi"), "corr-1")
	server := msg("srv-9", "team-a", "hi")
	s.ConfirmMessage("corr-1", server)

	// Echo of the confirmed message past the dedup window.
	s.AddMessage(msg("srv-9", "team-a", "hi"))

	assert.Equal(t, []string{"srv-9"}, s.MessageIDs("team-a"))
}

func TestStore_ConfirmWhenServerIDAlreadyLinked(t *testing.T) {
	s := NewStore(nil)

	// Server record already arrived via another path before the confirm.
	s.AddMessage(msg("srv-9", "team-a", "other copy"))
	s.AddMessageOptimistic(msg("temp-1", "team-a", "hi"), "corr-1")

	s.ConfirmMessage("corr-1", msg("srv-9", "team-a", "hi"))

	// The temp slot is dropped instead of duplicating srv-9.
	assert.Equal(t, []string{"srv-9"}, s.MessageIDs("team-a"))
}

func TestStore_ReOptimisticSameTemp_SingleTrackingEntry(t *testing.T) {
	s := NewStore(nil)

	temp := msg("temp-1", "team-a", "hi")
	s.AddMessageOptimistic(temp, "corr-1")
	s.AddMessageOptimistic(temp, "corr-2")

	// A temp id appears in at most one tracking entry at a time.
	_, ok := s.PendingMessageID("corr-1")
	assert.False(t, ok)
	tid, ok := s.PendingMessageID("corr-2")
	require.True(t, ok)
	assert.Equal(t, "temp-1", tid)
	assert.Equal(t, []string{"temp-1"}, s.MessageIDs("team-a"))
}

func TestStore_MixedSequenceInvariant(t *testing.T) {
	s := NewStore(nil)

	s.AddMessage(msg("m-1", "team-a", "one"))
	s.AddMessageOptimistic(msg("temp-a", "team-a", "two"), "c-a")
	s.AddMessageOptimistic(msg("temp-b", "team-a", "three"), "c-b")
	s.ConfirmMessage("c-a", msg("srv-a", "team-a", "two"))
	s.RollbackMessage("temp-b")
	s.AddMessage(msg("m-2", "team-a", "four"))
	s.AddMessage(msg("m-2", "team-a", "four"))

	ids := s.MessageIDs("team-a")
	assert.Equal(t, []string{"m-1", "srv-a", "m-2"}, ids)

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "no duplicate ids in relationship list")
		seen[id] = true
		_, ok := s.Message(id)
		assert.True(t, ok, "every listed id resolves")
	}
}

func TestStore_MessagesResolveInOrder(t *testing.T) {
	s := NewStore(nil)

	now := time.Now()
	s.AddMessage(&Message{ID: "m-1", TeamID: "team-a", Content: "a", CreatedAt: now})
	s.AddMessage(&Message{ID: "m-2", TeamID: "team-a", Content: "b", CreatedAt: now})

	msgs := s.Messages("team-a")
	require.Len(t, msgs, 2)
	assert.Equal(t, "m-1", msgs[0].ID)
	assert.Equal(t, "m-2", msgs[1].ID)
}
