// ABOUTME: Pure factory functions producing canonical event records from domain DTOs.
// ABOUTME: Write constructors accept a caller-supplied id so request path and push echo dedupe as one occurrence.

package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-client/internal/state"
)

// NewEventID generates an event identifier that is collision-resistant
// within the dedup window. No global coordination: millisecond timestamp
// plus a random suffix.
func NewEventID() string {
	return fmt.Sprintf("evt-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// orFresh returns the supplied id, or a freshly generated one when empty.
func orFresh(id string) string {
	if id != "" {
		return id
	}
	return NewEventID()
}

// NewMessageCreated builds a message:created event. For writes, pass the
// correlation id as eventID so the eventual push echo deduplicates against
// this publication.
func NewMessageCreated(m *state.Message, src Source, eventID, correlationID string) Event {
	return Event{
		Type:          TypeMessageCreated,
		ID:            orFresh(eventID),
		Source:        src,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
		TeamID:        m.TeamID,
		Message:       m,
	}
}

// NewMessageEdited builds a message:edited event carrying the updated record.
func NewMessageEdited(m *state.Message, src Source, eventID string) Event {
	return Event{
		Type:      TypeMessageEdited,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    m.TeamID,
		Message:   m,
	}
}

// NewMessageDeleted builds a message:deleted event.
func NewMessageDeleted(messageID, teamID string, src Source, eventID string) Event {
	return Event{
		Type:      TypeMessageDeleted,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    teamID,
		EntityID:  messageID,
	}
}

// NewInsightCreated builds an insight:created event.
func NewInsightCreated(in *state.Insight, src Source, eventID, correlationID string) Event {
	return Event{
		Type:          TypeInsightCreated,
		ID:            orFresh(eventID),
		Source:        src,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
		TeamID:        in.TeamID,
		Insight:       in,
	}
}

// NewInsightUpdated builds an insight:updated event carrying the updated record.
func NewInsightUpdated(in *state.Insight, src Source, eventID string) Event {
	return Event{
		Type:      TypeInsightUpdated,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    in.TeamID,
		Insight:   in,
	}
}

// NewInsightDeleted builds an insight:deleted event.
func NewInsightDeleted(insightID, teamID string, src Source, eventID string) Event {
	return Event{
		Type:      TypeInsightDeleted,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    teamID,
		EntityID:  insightID,
	}
}

// NewTeamCreated builds a team:created event.
func NewTeamCreated(t *state.Team, src Source, eventID string) Event {
	return Event{
		Type:      TypeTeamCreated,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    t.ID,
		Team:      t,
	}
}

// NewTeamUpdated builds a team:updated event.
func NewTeamUpdated(t *state.Team, src Source, eventID string) Event {
	return Event{
		Type:      TypeTeamUpdated,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    t.ID,
		Team:      t,
	}
}

// NewUserJoined builds a user:joined event for a team membership change.
func NewUserJoined(u *state.User, teamID string, src Source, eventID string) Event {
	return Event{
		Type:      TypeUserJoined,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    teamID,
		UserID:    u.ID,
		User:      u,
	}
}

// NewUserLeft builds a user:left event.
func NewUserLeft(userID, teamID string, src Source, eventID string) Event {
	return Event{
		Type:      TypeUserLeft,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    teamID,
		UserID:    userID,
	}
}

// NewPresence builds a presence:online or presence:offline event.
func NewPresence(userID, teamID string, online bool, src Source, eventID string) Event {
	typ := TypePresenceOffline
	if online {
		typ = TypePresenceOnline
	}
	return Event{
		Type:      typ,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    teamID,
		UserID:    userID,
	}
}

// NewTyping builds a typing:started or typing:stopped event.
func NewTyping(userID, teamID string, typing bool, src Source, eventID string) Event {
	typ := TypeTypingStopped
	if typing {
		typ = TypeTypingStarted
	}
	return Event{
		Type:      typ,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    teamID,
		UserID:    userID,
	}
}

// NewSettingToggled builds a setting:toggled broadcast event.
func NewSettingToggled(teamID, setting string, enabled bool, src Source, eventID string) Event {
	return Event{
		Type:      TypeSettingToggled,
		ID:        orFresh(eventID),
		Source:    src,
		Timestamp: time.Now(),
		TeamID:    teamID,
		Setting:   setting,
		Enabled:   enabled,
	}
}

// NewConnectionState builds a connection:state event. Always local-sourced.
func NewConnectionState(connState string) Event {
	return Event{
		Type:      TypeConnectionState,
		ID:        NewEventID(),
		Source:    SourceLocal,
		Timestamp: time.Now(),
		State:     connState,
	}
}
