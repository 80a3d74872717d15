// ABOUTME: Canonical event record shapes: closed set of types, sources, and payload fields.
// ABOUTME: One Event struct with optional payload pointers, discriminated by Type.

package event

import (
	"strings"
	"time"

	"github.com/2389/coven-client/internal/state"
)

// Source identifies which path produced an event.
type Source string

const (
	// SourceRequest marks events constructed from a request/response call.
	SourceRequest Source = "request"
	// SourcePush marks events decoded from the push transport.
	SourcePush Source = "push"
	// SourceLocal marks events fabricated client-side (connection state).
	SourceLocal Source = "local"
)

// Type is a category:action event topic. The set is closed; subscribers
// register against these constants, a category wildcard ("message:*"), or
// the universal topic ("*").
type Type string

const (
	TypeMessageCreated Type = "message:created"
	TypeMessageEdited  Type = "message:edited"
	TypeMessageDeleted Type = "message:deleted"

	TypeInsightCreated Type = "insight:created"
	TypeInsightUpdated Type = "insight:updated"
	TypeInsightDeleted Type = "insight:deleted"

	TypeTeamCreated Type = "team:created"
	TypeTeamUpdated Type = "team:updated"

	TypeUserJoined Type = "user:joined"
	TypeUserLeft   Type = "user:left"

	TypePresenceOnline  Type = "presence:online"
	TypePresenceOffline Type = "presence:offline"

	TypeTypingStarted Type = "typing:started"
	TypeTypingStopped Type = "typing:stopped"

	TypeSettingToggled Type = "setting:toggled"

	TypeConnectionState Type = "connection:state"
)

// Category returns the topic's category prefix: "message:created" -> "message".
func (t Type) Category() string {
	s := string(t)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// Event is the canonical record published on the bus. ID is the dedup key:
// when a request-path write and its push echo carry the same ID, only the
// first publication is dispatched. Payload pointers are set per Type.
type Event struct {
	Type      Type
	ID        string
	Source    Source
	Timestamp time.Time

	// CorrelationID links a request-path write to its optimistic store
	// entry. Push echoes commonly omit it.
	CorrelationID string

	// TeamID scopes presence, typing, membership, and delete events.
	TeamID string
	// UserID identifies the actor for presence, typing, and membership.
	UserID string
	// EntityID identifies the target of delete events.
	EntityID string

	Message *state.Message
	Insight *state.Insight
	Team    *state.Team
	User    *state.User

	// Setting and Enabled carry the toggle-setting broadcast.
	Setting string
	Enabled bool

	// State carries the connection manager state for TypeConnectionState.
	State string
}
