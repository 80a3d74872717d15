// ABOUTME: Transport abstraction over the push channel plus the websocket implementation.
// ABOUTME: The Manager only sees Dial/Send/Receive/Close; tests swap in a fake.

package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ErrNotConnected is returned by Send/Receive before a successful Dial or
// after Close.
var ErrNotConnected = errors.New("realtime: transport not connected")

// Transport is the wire-level push channel the Manager drives.
type Transport interface {
	// Dial establishes a fresh connection, replacing any previous one.
	Dial(ctx context.Context, url string) error
	// Send writes one frame.
	Send(ctx context.Context, f Frame) error
	// Receive blocks for the next inbound frame. It returns an error when
	// the connection drops; the Manager treats that as a disconnect.
	Receive(ctx context.Context) (Frame, error)
	// Close tears the connection down.
	Close() error
}

// WSTransport is the production Transport over a websocket.
type WSTransport struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	header http.Header
}

// NewWSTransport creates a websocket transport. header (typically the
// Authorization bearer) is sent with every dial.
func NewWSTransport(header http.Header) *WSTransport {
	return &WSTransport{header: header}
}

func (t *WSTransport) Dial(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: t.header,
	})
	if err != nil {
		return err
	}
	// Inbound frames can burst after a reconnect replay on the server side.
	conn.SetReadLimit(1 << 20)

	t.mu.Lock()
	old := t.conn
	t.conn = conn
	t.mu.Unlock()

	if old != nil {
		_ = old.Close(websocket.StatusNormalClosure, "superseded")
	}
	return nil
}

func (t *WSTransport) current() *websocket.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

func (t *WSTransport) Send(ctx context.Context, f Frame) error {
	conn := t.current()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, f)
}

func (t *WSTransport) Receive(ctx context.Context) (Frame, error) {
	conn := t.current()
	if conn == nil {
		return Frame{}, ErrNotConnected
	}
	var f Frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "client disconnect")
}

var _ Transport = (*WSTransport)(nil)
