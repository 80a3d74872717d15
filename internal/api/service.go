// ABOUTME: Service functions tying API calls to the event bus and optimistic store updates.
// ABOUTME: Pattern per write: optimistic insert -> call -> publish(corr) on success, rollback on failure.

package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-client/internal/event"
	"github.com/2389/coven-client/internal/state"
)

// Service exposes the request-path operations the UI calls. Each write
// publishes its canonical event with the correlation id as the event id,
// so the push echo deduplicates at the bus.
type Service struct {
	api    *Client
	store  *state.Store
	bus    *event.Bus
	logger *slog.Logger
}

// NewService creates the request-path service layer.
func NewService(api *Client, store *state.Store, bus *event.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:    api,
		store:  store,
		bus:    bus,
		logger: logger.With("component", "api"),
	}
}

// newTempID fabricates a client-local id for an optimistic entity.
func newTempID() string {
	return "temp-" + uuid.NewString()
}

// SendMessage inserts the message optimistically, performs the call, and
// publishes message:created on success. On failure the temp entity rolls
// back and the error surfaces to the caller; no retry at this layer.
func (s *Service) SendMessage(ctx context.Context, teamID, userID, content string) (*state.Message, error) {
	corr := uuid.NewString()
	temp := &state.Message{
		ID:        newTempID(),
		TeamID:    teamID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.store.AddMessageOptimistic(temp, corr)

	msg, err := s.api.CreateMessage(ctx, teamID, corr, CreateMessageRequest{UserID: userID, Content: content})
	if err != nil {
		s.store.RollbackMessage(temp.ID)
		return nil, fmt.Errorf("send message: %w", err)
	}

	s.bus.Publish(event.NewMessageCreated(msg, event.SourceRequest, corr, corr))
	return msg, nil
}

// EditMessage updates a message and publishes message:edited.
func (s *Service) EditMessage(ctx context.Context, teamID, messageID, content string) (*state.Message, error) {
	corr := uuid.NewString()
	msg, err := s.api.UpdateMessage(ctx, teamID, messageID, corr, content)
	if err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	s.bus.Publish(event.NewMessageEdited(msg, event.SourceRequest, corr))
	return msg, nil
}

// DeleteMessage removes a message and publishes message:deleted.
func (s *Service) DeleteMessage(ctx context.Context, teamID, messageID string) error {
	corr := uuid.NewString()
	if err := s.api.DeleteMessage(ctx, teamID, messageID, corr); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	s.bus.Publish(event.NewMessageDeleted(messageID, teamID, event.SourceRequest, corr))
	return nil
}

// LoadMessages hydrates the store with a team's message history. Bulk
// reads go straight to the store; they are not occurrences to publish.
func (s *Service) LoadMessages(ctx context.Context, teamID string) error {
	msgs, err := s.api.ListMessages(ctx, teamID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	for _, m := range msgs {
		s.store.AddMessage(m)
	}
	s.logger.Debug("hydrated messages", "team_id", teamID, "count", len(msgs))
	return nil
}

// CreateInsight inserts an insight optimistically and publishes
// insight:created on success.
func (s *Service) CreateInsight(ctx context.Context, teamID string, req CreateInsightRequest) (*state.Insight, error) {
	corr := uuid.NewString()
	temp := &state.Insight{
		ID:        newTempID(),
		TeamID:    teamID,
		MessageID: req.MessageID,
		Kind:      req.Kind,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	s.store.AddInsightOptimistic(temp, corr)

	in, err := s.api.CreateInsight(ctx, teamID, corr, req)
	if err != nil {
		s.store.RollbackInsight(temp.ID)
		return nil, fmt.Errorf("create insight: %w", err)
	}

	s.bus.Publish(event.NewInsightCreated(in, event.SourceRequest, corr, corr))
	return in, nil
}

// UpdateInsight updates an insight and publishes insight:updated.
func (s *Service) UpdateInsight(ctx context.Context, teamID, insightID, content string) (*state.Insight, error) {
	corr := uuid.NewString()
	in, err := s.api.UpdateInsight(ctx, teamID, insightID, corr, content)
	if err != nil {
		return nil, fmt.Errorf("update insight: %w", err)
	}
	s.bus.Publish(event.NewInsightUpdated(in, event.SourceRequest, corr))
	return in, nil
}

// DeleteInsight removes an insight and publishes insight:deleted.
func (s *Service) DeleteInsight(ctx context.Context, teamID, insightID string) error {
	corr := uuid.NewString()
	if err := s.api.DeleteInsight(ctx, teamID, insightID, corr); err != nil {
		return fmt.Errorf("delete insight: %w", err)
	}
	s.bus.Publish(event.NewInsightDeleted(insightID, teamID, event.SourceRequest, corr))
	return nil
}

// LoadInsights hydrates the store with a team's insights.
func (s *Service) LoadInsights(ctx context.Context, teamID string) error {
	ins, err := s.api.ListInsights(ctx, teamID)
	if err != nil {
		return fmt.Errorf("load insights: %w", err)
	}
	for _, in := range ins {
		s.store.AddInsight(in)
	}
	return nil
}

// CreateTeam creates a team and publishes team:created. Teams have no
// optimistic path; they are store-only.
func (s *Service) CreateTeam(ctx context.Context, name string) (*state.Team, error) {
	corr := uuid.NewString()
	team, err := s.api.CreateTeam(ctx, corr, name)
	if err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	s.bus.Publish(event.NewTeamCreated(team, event.SourceRequest, corr))
	return team, nil
}

// LoadTeams hydrates the store with the user's teams.
func (s *Service) LoadTeams(ctx context.Context) error {
	teams, err := s.api.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("load teams: %w", err)
	}
	for _, team := range teams {
		s.store.AddTeam(team)
	}
	return nil
}

// JoinTeam adds the authenticated user to a team and publishes
// user:joined.
func (s *Service) JoinTeam(ctx context.Context, teamID string) (*state.User, error) {
	corr := uuid.NewString()
	user, err := s.api.JoinTeam(ctx, teamID, corr)
	if err != nil {
		return nil, fmt.Errorf("join team: %w", err)
	}
	s.bus.Publish(event.NewUserJoined(user, teamID, event.SourceRequest, corr))
	return user, nil
}

// LoadTeamMembers hydrates the store with a team's member list.
func (s *Service) LoadTeamMembers(ctx context.Context, teamID string) error {
	users, err := s.api.ListTeamMembers(ctx, teamID)
	if err != nil {
		return fmt.Errorf("load team members: %w", err)
	}
	for _, u := range users {
		s.store.AddUser(u)
		s.store.AddTeamMember(teamID, u.ID)
	}
	return nil
}
