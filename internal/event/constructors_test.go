// ABOUTME: Tests for event constructors: id generation, supplied ids, category derivation.

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-client/internal/state"
)

func TestNewEventID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewEventID()
		require.False(t, seen[id], "generated ids must not collide within the dedup window")
		seen[id] = true
	}
}

func TestConstructors_FreshIDWhenUnset(t *testing.T) {
	m := &state.Message{ID: "m-1", TeamID: "team-a", Content: "hi"}

	a := NewMessageCreated(m, SourcePush, "", "")
	b := NewMessageCreated(m, SourcePush, "", "")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, TypeMessageCreated, a.Type)
	assert.Equal(t, SourcePush, a.Source)
	assert.False(t, a.Timestamp.IsZero())
}

func TestConstructors_SuppliedIDPreserved(t *testing.T) {
	m := &state.Message{ID: "m-1", TeamID: "team-a", Content: "hi"}

	e := NewMessageCreated(m, SourceRequest, "corr-7", "corr-7")
	assert.Equal(t, "corr-7", e.ID)
	assert.Equal(t, "corr-7", e.CorrelationID)
}

func TestConstructors_PayloadFields(t *testing.T) {
	in := &state.Insight{ID: "i-1", TeamID: "team-a", Content: "summary"}
	e := NewInsightCreated(in, SourcePush, "", "")
	assert.Equal(t, TypeInsightCreated, e.Type)
	assert.Equal(t, "team-a", e.TeamID)
	assert.Same(t, in, e.Insight)

	d := NewMessageDeleted("m-9", "team-a", SourcePush, "")
	assert.Equal(t, "m-9", d.EntityID)
	assert.Equal(t, "team-a", d.TeamID)

	p := NewPresence("u-1", "team-a", true, SourcePush, "")
	assert.Equal(t, TypePresenceOnline, p.Type)
	p = NewPresence("u-1", "team-a", false, SourcePush, "")
	assert.Equal(t, TypePresenceOffline, p.Type)

	ty := NewTyping("u-1", "team-a", true, SourcePush, "")
	assert.Equal(t, TypeTypingStarted, ty.Type)

	st := NewSettingToggled("team-a", "auto-respond", true, SourcePush, "")
	assert.Equal(t, "auto-respond", st.Setting)
	assert.True(t, st.Enabled)

	cs := NewConnectionState("reconnecting")
	assert.Equal(t, SourceLocal, cs.Source)
	assert.Equal(t, "reconnecting", cs.State)
}

func TestType_Category(t *testing.T) {
	assert.Equal(t, "message", TypeMessageCreated.Category())
	assert.Equal(t, "insight", TypeInsightDeleted.Category())
	assert.Equal(t, "connection", TypeConnectionState.Category())
	assert.Equal(t, "plain", Type("plain").Category())
}
