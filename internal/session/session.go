// ABOUTME: Composition root wiring dedupe cache, bus, store, bridge, API service, and realtime manager.
// ABOUTME: Owns startup order (bridge before transport) and the reset path that clears all client state.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/2389/coven-client/internal/api"
	"github.com/2389/coven-client/internal/auth"
	"github.com/2389/coven-client/internal/bridge"
	"github.com/2389/coven-client/internal/config"
	"github.com/2389/coven-client/internal/dedupe"
	"github.com/2389/coven-client/internal/event"
	"github.com/2389/coven-client/internal/metrics"
	"github.com/2389/coven-client/internal/realtime"
	"github.com/2389/coven-client/internal/state"
)

// Session owns one authenticated client's full sync stack. Construction
// wires the pieces; Initialize connects and hydrates.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger
	token  *auth.Token

	mu          sync.Mutex
	initialized bool

	cache   *dedupe.Cache
	bus     *event.Bus
	store   *state.Store
	unwire  func()
	manager *realtime.Manager
	service *api.Service
	rec     metrics.Recorder
}

// Option overrides a default dependency, mainly for tests.
type Option func(*options)

type options struct {
	transport  realtime.Transport
	rec        metrics.Recorder
	httpClient *http.Client
}

// WithTransport substitutes the push transport.
func WithTransport(t realtime.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithRecorder substitutes the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(o *options) { o.rec = rec }
}

// WithHTTPClient substitutes the API HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds a session from config. The bridge is wired before anything can
// publish, so the store is always the first subscriber on every topic.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.rec == nil {
		o.rec = metrics.Noop{}
	}

	token, err := auth.NewToken(cfg.Server.Token)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	cache := dedupe.New(cfg.Dedupe.TTL, cfg.Dedupe.MaxSize)
	bus := event.NewBus(cache, o.rec, logger)
	store := state.NewStore(logger)
	unwire := bridge.Wire(bus, store, logger)

	transport := o.transport
	if transport == nil {
		header := http.Header{}
		header.Set("Authorization", token.Authorization())
		transport = realtime.NewWSTransport(header)
	}

	manager := realtime.NewManager(realtime.Config{
		URL:                  cfg.Server.WebsocketURL,
		BackoffBase:          cfg.Realtime.BackoffBase,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		HeartbeatInterval:    cfg.Realtime.HeartbeatInterval,
		QueueCapacity:        cfg.Realtime.QueueCapacity,
		QueueMaxAge:          cfg.Realtime.QueueMaxAge,
	}, transport, func(e event.Event) { bus.Publish(e) }, o.rec, logger)

	client := api.NewClient(cfg.Server.APIURL, token.Raw(), o.httpClient)
	service := api.NewService(client, store, bus, logger)

	return &Session{
		cfg:     cfg,
		logger:  logger.With("component", "session"),
		token:   token,
		cache:   cache,
		bus:     bus,
		store:   store,
		unwire:  unwire,
		manager: manager,
		service: service,
		rec:     o.rec,
	}, nil
}

// ErrAlreadyInitialized is returned by a second Initialize without an
// intervening Reset.
var ErrAlreadyInitialized = fmt.Errorf("session: already initialized")

// Initialize connects the push transport, joins the configured team rooms,
// and hydrates their history. A known-expired token fails fast instead of
// burning the reconnect budget on 401s. Initialize runs at most once per
// session until Reset.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.initialized = true
	s.mu.Unlock()

	if err := s.token.Check(time.Now()); err != nil {
		s.clearInitialized()
		return fmt.Errorf("session: %w", err)
	}

	if err := s.manager.Connect(ctx); err != nil {
		s.clearInitialized()
		return fmt.Errorf("session: %w", err)
	}

	if err := s.service.LoadTeams(ctx); err != nil {
		s.logger.Warn("team hydration failed", "error", err)
	}

	for _, teamID := range s.cfg.Teams {
		if err := s.manager.JoinTeam(ctx, teamID); err != nil {
			s.logger.Warn("room join failed", "team_id", teamID, "error", err)
			continue
		}
		if err := s.service.LoadTeamMembers(ctx, teamID); err != nil {
			s.logger.Warn("member hydration failed", "team_id", teamID, "error", err)
		}
		if err := s.service.LoadMessages(ctx, teamID); err != nil {
			s.logger.Warn("message hydration failed", "team_id", teamID, "error", err)
		}
	}

	s.logger.Info("session initialized", "teams", len(s.cfg.Teams), "subject", s.token.Subject())
	return nil
}

func (s *Session) clearInitialized() {
	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()
}

// Reset disconnects and wipes all derived client state. Entities, id
// lists, pending correlations, and seen event ids all go; subscriptions
// stay wired and the session may be initialized again.
func (s *Session) Reset() {
	if err := s.manager.Disconnect(); err != nil {
		s.logger.Warn("disconnect during reset failed", "error", err)
	}
	s.store.Reset()
	s.cache.Clear()
	s.clearInitialized()
	s.logger.Info("session state reset")
}

// Close disconnects the transport and stops background work. The session
// is not reusable afterwards.
func (s *Session) Close() error {
	s.unwire()
	err := s.manager.Disconnect()
	s.cache.Close()
	return err
}

// Store exposes the normalized entity store for read access.
func (s *Session) Store() *state.Store { return s.store }

// Bus exposes the event bus for UI subscriptions.
func (s *Session) Bus() *event.Bus { return s.bus }

// Service exposes the request-path operations.
func (s *Session) Service() *api.Service { return s.service }

// Realtime exposes the connection manager.
func (s *Session) Realtime() *realtime.Manager { return s.manager }
