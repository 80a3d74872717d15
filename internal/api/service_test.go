// ABOUTME: Tests for the service layer: optimistic insert/confirm/rollback wired through
// ABOUTME: a real bus and store against an httptest server.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-client/internal/bridge"
	"github.com/2389/coven-client/internal/dedupe"
	"github.com/2389/coven-client/internal/event"
	"github.com/2389/coven-client/internal/metrics"
	"github.com/2389/coven-client/internal/state"
)

type serviceHarness struct {
	svc   *Service
	store *state.Store
	bus   *event.Bus
	cache *dedupe.Cache
}

func newServiceHarness(t *testing.T, handler http.Handler) *serviceHarness {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cache := dedupe.New(5*time.Second, 100)
	t.Cleanup(cache.Close)

	bus := event.NewBus(cache, metrics.Noop{}, nil)
	store := state.NewStore(nil)
	unwire := bridge.Wire(bus, store, nil)
	t.Cleanup(unwire)

	client := NewClient(srv.URL, "tok-test", srv.Client())
	return &serviceHarness{
		svc:   NewService(client, store, bus, nil),
		store: store,
		bus:   bus,
		cache: cache,
	}
}

func TestSendMessage_OptimisticThenConfirmed(t *testing.T) {
	var gotKey string
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/teams/team-a/messages", r.URL.Path)
		require.Equal(t, "Bearer tok-test", r.Header.Get("Authorization"))
		gotKey = r.Header.Get("Idempotency-Key")

		var req CreateMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(state.Message{
			ID:        "m-1",
			TeamID:    "team-a",
			UserID:    req.UserID,
			Content:   req.Content,
			CreatedAt: time.Now(),
		})
	}))

	msg, err := h.svc.SendMessage(context.Background(), "team-a", "u-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "m-1", msg.ID)
	assert.NotEmpty(t, gotKey, "writes must carry an idempotency key")

	// Confirmed in place: one entry, server id, no temp remnant.
	ids := h.store.MessageIDs("team-a")
	require.Len(t, ids, 1)
	assert.Equal(t, "m-1", ids[0])
	_, pending := h.store.PendingMessageID(gotKey)
	assert.False(t, pending)
}

func TestSendMessage_PushEchoIsDeduplicated(t *testing.T) {
	var key string
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		json.NewEncoder(w).Encode(state.Message{ID: "m-1", TeamID: "team-a", Content: "hello"})
	}))

	var deliveries int
	h.bus.Subscribe("message:created", func(event.Event) { deliveries++ })

	_, err := h.svc.SendMessage(context.Background(), "team-a", "u-1", "hello")
	require.NoError(t, err)
	require.Equal(t, 1, deliveries)

	// The push echo arrives with the correlation id as its event id.
	echo := event.NewMessageCreated(
		&state.Message{ID: "m-1", TeamID: "team-a", Content: "hello"},
		event.SourcePush, key, key,
	)
	assert.False(t, h.bus.Publish(echo), "echo must be swallowed")
	assert.Equal(t, 1, deliveries)
	assert.Len(t, h.store.MessageIDs("team-a"), 1)
}

func TestSendMessage_RollbackOnFailure(t *testing.T) {
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"code": "not_a_member", "message": "join the team first"})
	}))

	_, err := h.svc.SendMessage(context.Background(), "team-a", "u-1", "hello")
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, "not_a_member", httpErr.Code)

	assert.Empty(t, h.store.MessageIDs("team-a"), "failed send leaves no trace")
}

func TestCreateInsight_OptimisticThenConfirmed(t *testing.T) {
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/teams/team-a/insights", r.URL.Path)
		var req CreateInsightRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(state.Insight{
			ID: "i-1", TeamID: "team-a", MessageID: req.MessageID, Kind: req.Kind, Content: req.Content,
		})
	}))

	in, err := h.svc.CreateInsight(context.Background(), "team-a", CreateInsightRequest{
		MessageID: "m-1", Kind: "summary", Content: "tl;dr",
	})
	require.NoError(t, err)
	assert.Equal(t, "i-1", in.ID)

	ids := h.store.InsightIDs("team-a")
	require.Len(t, ids, 1)
	assert.Equal(t, "i-1", ids[0])
}

func TestCreateInsight_RollbackOnFailure(t *testing.T) {
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := h.svc.CreateInsight(context.Background(), "team-a", CreateInsightRequest{Kind: "summary", Content: "x"})
	require.Error(t, err)
	assert.Empty(t, h.store.InsightIDs("team-a"))
}

func TestEditMessage_PublishesAndApplies(t *testing.T) {
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/teams/team-a/messages/m-1", r.URL.Path)
		now := time.Now()
		json.NewEncoder(w).Encode(state.Message{ID: "m-1", TeamID: "team-a", Content: "revised", EditedAt: &now})
	}))

	h.store.AddMessage(&state.Message{ID: "m-1", TeamID: "team-a", Content: "original"})

	msg, err := h.svc.EditMessage(context.Background(), "team-a", "m-1", "revised")
	require.NoError(t, err)
	assert.Equal(t, "revised", msg.Content)

	got, ok := h.store.Message("m-1")
	require.True(t, ok)
	assert.Equal(t, "revised", got.Content)
	assert.NotNil(t, got.EditedAt)
}

func TestDeleteMessage_RemovesFromStore(t *testing.T) {
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))

	h.store.AddMessage(&state.Message{ID: "m-1", TeamID: "team-a"})

	require.NoError(t, h.svc.DeleteMessage(context.Background(), "team-a", "m-1"))
	assert.Empty(t, h.store.MessageIDs("team-a"))
}

func TestLoadMessages_HydratesWithoutEvents(t *testing.T) {
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]state.Message{
			{ID: "m-1", TeamID: "team-a", Content: "first"},
			{ID: "m-2", TeamID: "team-a", Content: "second"},
		})
	}))

	var published int
	h.bus.Subscribe("*", func(event.Event) { published++ })

	require.NoError(t, h.svc.LoadMessages(context.Background(), "team-a"))
	assert.Equal(t, []string{"m-1", "m-2"}, h.store.MessageIDs("team-a"))
	assert.Zero(t, published, "bulk hydration bypasses the bus")
}

func TestCreateTeamAndJoin(t *testing.T) {
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/teams":
			json.NewEncoder(w).Encode(state.Team{ID: "team-a", Name: "research"})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/members"):
			json.NewEncoder(w).Encode(state.User{ID: "u-1", Name: "ada"})
		default:
			http.NotFound(w, r)
		}
	}))

	team, err := h.svc.CreateTeam(context.Background(), "research")
	require.NoError(t, err)
	assert.Equal(t, "team-a", team.ID)
	_, ok := h.store.Team("team-a")
	assert.True(t, ok)

	user, err := h.svc.JoinTeam(context.Background(), "team-a")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Contains(t, h.store.TeamMemberIDs("team-a"), "u-1")
}

func TestLoadTeamMembers(t *testing.T) {
	h := newServiceHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]state.User{{ID: "u-1", Name: "ada"}, {ID: "u-2", Name: "brin"}})
	}))

	require.NoError(t, h.svc.LoadTeamMembers(context.Background(), "team-a"))
	assert.Equal(t, []string{"u-1", "u-2"}, h.store.TeamMemberIDs("team-a"))
	_, ok := h.store.User("u-2")
	assert.True(t, ok)
}
