// ABOUTME: Wire-level frame shape for the push channel and the 1:1 frame-to-event mapping.
// ABOUTME: Every named server message decodes to exactly one canonical event.

package realtime

import (
	"time"

	"github.com/2389/coven-client/internal/event"
	"github.com/2389/coven-client/internal/state"
)

// Frame kinds, matching the server's push-channel message names.
const (
	FrameRoomJoin  = "room_join"
	FrameRoomLeave = "room_leave"

	FrameMessageCreated = "message_created"
	FrameMessageEdited  = "message_edited"
	FrameMessageDeleted = "message_deleted"

	FrameInsightCreated = "insight_created"
	FrameInsightUpdated = "insight_updated"
	FrameInsightDeleted = "insight_deleted"

	FrameTeamCreated = "team_created"
	FrameTeamUpdated = "team_updated"

	FrameUserJoined = "user_joined"
	FrameUserLeft   = "user_left"

	FramePresenceOnline  = "presence_online"
	FramePresenceOffline = "presence_offline"

	FrameTypingStart = "typing_start"
	FrameTypingStop  = "typing_stop"

	FrameSettingToggled = "setting_toggled"

	FramePing = "ping"
	FramePong = "pong"
)

// Frame is one JSON message on the push channel, inbound or outbound.
// Payload fields are set per Kind.
type Frame struct {
	Kind          string         `json:"kind"`
	EventID       string         `json:"eventId,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	TeamID        string         `json:"teamId,omitempty"`
	UserID        string         `json:"userId,omitempty"`
	EntityID      string         `json:"entityId,omitempty"`
	Message       *state.Message `json:"message,omitempty"`
	Insight       *state.Insight `json:"insight,omitempty"`
	Team          *state.Team    `json:"team,omitempty"`
	User          *state.User    `json:"user,omitempty"`
	Setting       string         `json:"setting,omitempty"`
	Enabled       bool           `json:"enabled,omitempty"`
	Timestamp     time.Time      `json:"timestamp,omitempty"`
}

// DecodeFrame maps an inbound push frame to its canonical event. Returns
// false for frame kinds that carry no event (ping/pong, room acks) or for
// payloads missing their entity.
func DecodeFrame(f Frame) (event.Event, bool) {
	switch f.Kind {
	case FrameMessageCreated:
		if f.Message == nil {
			return event.Event{}, false
		}
		return event.NewMessageCreated(f.Message, event.SourcePush, f.EventID, f.CorrelationID), true
	case FrameMessageEdited:
		if f.Message == nil {
			return event.Event{}, false
		}
		return event.NewMessageEdited(f.Message, event.SourcePush, f.EventID), true
	case FrameMessageDeleted:
		return event.NewMessageDeleted(f.EntityID, f.TeamID, event.SourcePush, f.EventID), true

	case FrameInsightCreated:
		if f.Insight == nil {
			return event.Event{}, false
		}
		return event.NewInsightCreated(f.Insight, event.SourcePush, f.EventID, f.CorrelationID), true
	case FrameInsightUpdated:
		if f.Insight == nil {
			return event.Event{}, false
		}
		return event.NewInsightUpdated(f.Insight, event.SourcePush, f.EventID), true
	case FrameInsightDeleted:
		return event.NewInsightDeleted(f.EntityID, f.TeamID, event.SourcePush, f.EventID), true

	case FrameTeamCreated:
		if f.Team == nil {
			return event.Event{}, false
		}
		return event.NewTeamCreated(f.Team, event.SourcePush, f.EventID), true
	case FrameTeamUpdated:
		if f.Team == nil {
			return event.Event{}, false
		}
		return event.NewTeamUpdated(f.Team, event.SourcePush, f.EventID), true

	case FrameUserJoined:
		if f.User == nil {
			return event.Event{}, false
		}
		return event.NewUserJoined(f.User, f.TeamID, event.SourcePush, f.EventID), true
	case FrameUserLeft:
		return event.NewUserLeft(f.UserID, f.TeamID, event.SourcePush, f.EventID), true

	case FramePresenceOnline:
		return event.NewPresence(f.UserID, f.TeamID, true, event.SourcePush, f.EventID), true
	case FramePresenceOffline:
		return event.NewPresence(f.UserID, f.TeamID, false, event.SourcePush, f.EventID), true

	case FrameTypingStart:
		return event.NewTyping(f.UserID, f.TeamID, true, event.SourcePush, f.EventID), true
	case FrameTypingStop:
		return event.NewTyping(f.UserID, f.TeamID, false, event.SourcePush, f.EventID), true

	case FrameSettingToggled:
		return event.NewSettingToggled(f.TeamID, f.Setting, f.Enabled, event.SourcePush, f.EventID), true
	}

	return event.Event{}, false
}
