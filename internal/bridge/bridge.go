// ABOUTME: Subscribes store mutators to bus topics; request, push, and local events all land here.
// ABOUTME: Created events route through confirm when a correlation id is present, add otherwise.

package bridge

import (
	"log/slog"

	"github.com/2389/coven-client/internal/event"
	"github.com/2389/coven-client/internal/state"
)

// Wire subscribes the store's mutators to the bus. It must run before any
// UI subscriptions so the store is up to date by the time later-registered
// subscribers fire. Returns a function that removes every subscription,
// used on session reset.
func Wire(bus *event.Bus, store *state.Store, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "bridge")

	subs := []func(){
		bus.Subscribe(string(event.TypeMessageCreated), func(e event.Event) {
			if e.Message == nil {
				log.Warn("message:created without payload", "event_id", e.ID)
				return
			}
			if e.CorrelationID != "" {
				store.ConfirmMessage(e.CorrelationID, e.Message)
				return
			}
			store.AddMessage(e.Message)
		}),
		bus.Subscribe(string(event.TypeMessageEdited), func(e event.Event) {
			if e.Message == nil {
				return
			}
			store.UpdateMessage(e.Message.ID, state.MessagePatch{
				Content:  &e.Message.Content,
				EditedAt: e.Message.EditedAt,
				Metadata: e.Message.Metadata,
			})
		}),
		bus.Subscribe(string(event.TypeMessageDeleted), func(e event.Event) {
			store.RemoveMessage(e.EntityID, e.TeamID)
		}),

		bus.Subscribe(string(event.TypeInsightCreated), func(e event.Event) {
			if e.Insight == nil {
				log.Warn("insight:created without payload", "event_id", e.ID)
				return
			}
			if e.CorrelationID != "" {
				store.ConfirmInsight(e.CorrelationID, e.Insight)
				return
			}
			store.AddInsight(e.Insight)
		}),
		bus.Subscribe(string(event.TypeInsightUpdated), func(e event.Event) {
			if e.Insight == nil {
				return
			}
			store.UpdateInsight(e.Insight.ID, state.InsightPatch{
				Content: &e.Insight.Content,
				Kind:    &e.Insight.Kind,
			})
		}),
		bus.Subscribe(string(event.TypeInsightDeleted), func(e event.Event) {
			store.RemoveInsight(e.EntityID, e.TeamID)
		}),

		bus.Subscribe(string(event.TypeTeamCreated), func(e event.Event) {
			if e.Team != nil {
				store.AddTeam(e.Team)
			}
		}),
		bus.Subscribe(string(event.TypeTeamUpdated), func(e event.Event) {
			if e.Team != nil {
				store.UpdateTeam(e.Team.ID, e.Team.Name)
			}
		}),

		bus.Subscribe(string(event.TypeUserJoined), func(e event.Event) {
			if e.User != nil {
				store.AddUser(e.User)
			}
			store.AddTeamMember(e.TeamID, e.UserID)
		}),
		bus.Subscribe(string(event.TypeUserLeft), func(e event.Event) {
			store.RemoveTeamMember(e.TeamID, e.UserID)
		}),

		bus.Subscribe(string(event.TypePresenceOnline), func(e event.Event) {
			store.SetUserOnline(e.TeamID, e.UserID)
		}),
		bus.Subscribe(string(event.TypePresenceOffline), func(e event.Event) {
			store.SetUserOffline(e.TeamID, e.UserID)
		}),

		bus.Subscribe(string(event.TypeTypingStarted), func(e event.Event) {
			store.SetTypingStarted(e.TeamID, e.UserID)
		}),
		bus.Subscribe(string(event.TypeTypingStopped), func(e event.Event) {
			store.SetTypingStopped(e.TeamID, e.UserID)
		}),
	}

	return func() {
		for _, unsub := range subs {
			unsub()
		}
	}
}
