// ABOUTME: Domain entity records shared by the store, the event layer, and the API client.
// ABOUTME: Field sets mirror the server DTOs; JSON tags match the wire names.

package state

import "time"

// Message is a chat message inside a team.
type Message struct {
	ID        string            `json:"id"`
	TeamID    string            `json:"teamId"`
	UserID    string            `json:"userId"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"createdAt"`
	EditedAt  *time.Time        `json:"editedAt,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Insight is an AI-generated annotation scoped to a team, optionally tied
// to the message that triggered it.
type Insight struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	MessageID string    `json:"messageId,omitempty"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Team is a chat room scope.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a chat participant.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessagePatch carries the fields an edit may change. Nil fields are left
// untouched by Store.UpdateMessage.
type MessagePatch struct {
	Content  *string
	EditedAt *time.Time
	Metadata map[string]string
}

// InsightPatch carries the fields an insight update may change.
type InsightPatch struct {
	Content *string
	Kind    *string
}
