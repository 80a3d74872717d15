// ABOUTME: Connection lifecycle state machine: connect, heartbeat, backoff reconnect, room resubscription.
// ABOUTME: Timers are held as cancelable handles; every superseding transition cancels its predecessor.

package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/coven-client/internal/event"
	"github.com/2389/coven-client/internal/metrics"
)

// State is the connection manager's lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	// StateFailed is terminal until an explicit Reconnect call.
	StateFailed State = "failed"
)

// Config holds the manager's tunables. Zero values take the defaults below.
type Config struct {
	URL                  string
	BackoffBase          time.Duration // default 1s
	MaxReconnectAttempts int           // default 5
	HeartbeatInterval    time.Duration // default 30s
	QueueCapacity        int           // default 100
	QueueMaxAge          time.Duration // default 5m
}

func (c Config) withDefaults() Config {
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 100
	}
	if c.QueueMaxAge <= 0 {
		c.QueueMaxAge = 5 * time.Minute
	}
	return c
}

// BackoffDelay returns the reconnect delay for a 1-indexed attempt:
// base, 2*base, 4*base, ... No jitter; a single client reconnecting to one
// server gains nothing from it and determinism keeps the schedule testable.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// pendingConnect lets concurrent Connect callers share one in-flight
// attempt instead of dialing twice.
type pendingConnect struct {
	done chan struct{}
	err  error
}

// Manager owns the push transport's lifecycle. One instance per client
// session.
type Manager struct {
	cfg       Config
	transport Transport
	publish   func(event.Event)
	logger    *slog.Logger
	rec       metrics.Recorder

	mu             sync.Mutex
	state          State
	attempts       int
	manual         bool
	pending        *pendingConnect
	reconnectTimer *time.Timer
	heartbeatStop  chan struct{}
	rooms          []string
	queue          *offlineQueue
	lastPing       time.Time
	lastPong       time.Time

	// gen is bumped on every successful dial and on manual disconnect so
	// callbacks from superseded read loops and heartbeats become no-ops.
	gen uint64
}

// NewManager creates a connection manager. publish may be nil (events are
// dropped); rec nil for no metrics; logger nil for default.
func NewManager(cfg Config, transport Transport, publish func(event.Event), rec metrics.Recorder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:       cfg,
		transport: transport,
		publish:   publish,
		logger:    logger.With("component", "realtime"),
		rec:       rec,
		state:     StateDisconnected,
		queue:     newOfflineQueue(cfg.QueueCapacity),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastPing and LastPong expose heartbeat liveness for half-open detection.
func (m *Manager) LastPing() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPing
}

func (m *Manager) LastPong() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPong
}

// QueueLen returns the number of actions waiting for replay.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.len()
}

// setStateLocked transitions the state, records it, and notifies the bus.
// Publication happens on a separate goroutine so bus subscribers can call
// back into the manager without deadlocking.
func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	m.rec.ConnectionState(string(s))
	m.logger.Debug("connection state changed", "state", s)
	if m.publish != nil {
		ev := event.NewConnectionState(string(s))
		go m.publish(ev)
	}
}

// Connect establishes the push connection. Idempotent: already connected
// resolves immediately, and a second caller during an in-flight attempt
// waits on the existing one rather than dialing again.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return nil
	case StateFailed:
		m.mu.Unlock()
		return fmt.Errorf("realtime: connection failed after %d attempts; call Reconnect", m.cfg.MaxReconnectAttempts)
	}
	if m.pending != nil {
		p := m.pending
		m.mu.Unlock()
		<-p.done
		return p.err
	}
	p := &pendingConnect{done: make(chan struct{})}
	m.pending = p
	m.manual = false
	// Leaving reconnecting through an explicit connect supersedes the
	// pending backoff timer.
	m.cancelReconnectLocked()
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	err := m.establish(ctx)

	m.mu.Lock()
	m.pending = nil
	if err != nil {
		m.setStateLocked(StateDisconnected)
	}
	m.mu.Unlock()

	p.err = err
	close(p.done)
	return err
}

// establish dials the transport and, on success, starts the read loop and
// heartbeat, resubscribes rooms, and replays the offline queue.
func (m *Manager) establish(ctx context.Context) error {
	if err := m.transport.Dial(ctx, m.cfg.URL); err != nil {
		return fmt.Errorf("dial push transport: %w", err)
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.attempts = 0
	m.stopHeartbeatLocked()
	stop := make(chan struct{})
	m.heartbeatStop = stop
	m.setStateLocked(StateConnected)
	rooms := append([]string(nil), m.rooms...)
	replay := m.queue.drain(time.Now(), m.cfg.QueueMaxAge)
	m.rec.QueueDepth(m.queue.len())
	m.mu.Unlock()

	go m.heartbeat(gen, stop)
	go m.readLoop(gen)

	// Room (re)subscription is mandatory and idempotent on the server.
	for _, teamID := range rooms {
		if err := m.transport.Send(ctx, Frame{Kind: FrameRoomJoin, TeamID: teamID}); err != nil {
			m.logger.Warn("room rejoin failed", "team_id", teamID, "error", err)
		}
	}

	// Replay queued actions in original enqueue order.
	for _, f := range replay {
		if err := m.transport.Send(ctx, f); err != nil {
			m.logger.Warn("offline replay send failed", "kind", f.Kind, "error", err)
		}
	}
	if len(replay) > 0 {
		m.rec.ActionsReplayed(len(replay))
		m.logger.Info("replayed offline actions", "count", len(replay))
	}
	return nil
}

// readLoop pumps inbound frames until the transport errors, then reports
// the disconnect. Decoded frames are published exactly as request-path
// events are.
func (m *Manager) readLoop(gen uint64) {
	for {
		f, err := m.transport.Receive(context.Background())
		if err != nil {
			m.handleDisconnect(gen, err)
			return
		}

		switch f.Kind {
		case FramePong:
			m.mu.Lock()
			if gen == m.gen {
				m.lastPong = time.Now()
			}
			m.mu.Unlock()
		case FramePing:
			// Server-initiated liveness probe.
			if err := m.transport.Send(context.Background(), Frame{Kind: FramePong}); err != nil {
				m.logger.Warn("pong send failed", "error", err)
			}
		default:
			ev, ok := DecodeFrame(f)
			if !ok {
				m.logger.Debug("unhandled push frame", "kind", f.Kind)
				continue
			}
			if m.publish != nil {
				m.publish(ev)
			}
		}
	}
}

// heartbeat emits a ping every interval while this connection generation is
// live. Stops on the stop channel or when superseded.
func (m *Manager) heartbeat(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if gen != m.gen || m.state != StateConnected {
				m.mu.Unlock()
				return
			}
			m.lastPing = time.Now()
			m.mu.Unlock()

			if err := m.transport.Send(context.Background(), Frame{Kind: FramePing}); err != nil {
				m.logger.Warn("heartbeat ping failed", "error", err)
			}
		}
	}
}

// handleDisconnect reacts to a transport drop observed by the read loop of
// generation gen. Manual disconnects stop here; unexpected ones schedule a
// backoff reconnect.
func (m *Manager) handleDisconnect(gen uint64, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		// A newer connection or a manual disconnect superseded this loop.
		return
	}

	m.logger.Warn("push transport disconnected", "error", cause)
	m.stopHeartbeatLocked()
	m.cancelReconnectLocked()

	if m.manual {
		m.setStateLocked(StateDisconnected)
		return
	}
	m.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the backoff timer for the next attempt, or
// transitions to failed once the attempt ceiling is reached. Must be called
// with mu held and no timer pending.
func (m *Manager) scheduleReconnectLocked() {
	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.logger.Error("reconnect attempts exhausted", "attempts", m.attempts)
		m.setStateLocked(StateFailed)
		return
	}
	m.attempts++
	delay := BackoffDelay(m.cfg.BackoffBase, m.attempts)
	m.setStateLocked(StateReconnecting)
	m.logger.Info("reconnect scheduled", "attempt", m.attempts, "delay", delay)
	m.reconnectTimer = time.AfterFunc(delay, m.runReconnect)
}

// runReconnect is the backoff timer callback.
func (m *Manager) runReconnect() {
	m.mu.Lock()
	if m.state != StateReconnecting || m.manual {
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	m.mu.Unlock()

	err := m.establish(context.Background())
	if err == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReconnecting || m.manual {
		return
	}
	m.logger.Warn("reconnect attempt failed", "attempt", m.attempts, "error", err)
	m.scheduleReconnectLocked()
}

// Disconnect closes the connection deliberately. No reconnect is scheduled.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	m.manual = true
	m.gen++ // invalidate the live read loop and heartbeat
	m.cancelReconnectLocked()
	m.stopHeartbeatLocked()
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	return m.transport.Close()
}

// Reconnect leaves the terminal failed state (or any other disconnected
// state) and starts a fresh attempt with the backoff counter reset.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	m.attempts = 0
	m.manual = false
	if m.state == StateFailed {
		m.setStateLocked(StateDisconnected)
	}
	m.mu.Unlock()

	return m.Connect(ctx)
}

// Send transmits an outbound action. While not connected the action joins
// the offline queue for replay after reconnect; nothing is silently lost
// until an entry outlives the queue's max age or capacity.
func (m *Manager) Send(ctx context.Context, f Frame) error {
	m.mu.Lock()
	if m.state != StateConnected {
		dropped := m.queue.enqueue(f, time.Now())
		depth := m.queue.len()
		m.mu.Unlock()
		m.rec.QueueDepth(depth)
		if dropped {
			m.logger.Warn("offline queue full, dropped oldest action")
		}
		m.logger.Debug("action queued while offline", "kind", f.Kind, "depth", depth)
		return nil
	}
	m.mu.Unlock()

	return m.transport.Send(ctx, f)
}

// JoinTeam registers interest in a team room. The join frame is sent
// immediately when connected and re-sent after every reconnect.
func (m *Manager) JoinTeam(ctx context.Context, teamID string) error {
	m.mu.Lock()
	known := false
	for _, r := range m.rooms {
		if r == teamID {
			known = true
			break
		}
	}
	if !known {
		m.rooms = append(m.rooms, teamID)
	}
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected {
		return nil
	}
	return m.transport.Send(ctx, Frame{Kind: FrameRoomJoin, TeamID: teamID})
}

// LeaveTeam drops a team room subscription.
func (m *Manager) LeaveTeam(ctx context.Context, teamID string) error {
	m.mu.Lock()
	for i, r := range m.rooms {
		if r == teamID {
			m.rooms = append(m.rooms[:i], m.rooms[i+1:]...)
			break
		}
	}
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected {
		return nil
	}
	return m.transport.Send(ctx, Frame{Kind: FrameRoomLeave, TeamID: teamID})
}

// stopHeartbeatLocked cancels the heartbeat exactly once per lifecycle
// transition that supersedes it. Must be called with mu held.
func (m *Manager) stopHeartbeatLocked() {
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
}

// cancelReconnectLocked stops a pending backoff timer so superseding
// transitions never leave two timers racing. Must be called with mu held.
func (m *Manager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}
