// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

// Package realtime maintains the push channel to the backend so challenge
// changes propagate without polling, while tolerating disconnects, server
// restarts, and process teardown.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/focusguard/focusguard/internal/backend"
	"github.com/focusguard/focusguard/internal/logging"
	"github.com/focusguard/focusguard/internal/metrics"
	"github.com/focusguard/focusguard/internal/state"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 30 * time.Second
)

// Notification types that signal a server-side challenge change. Any other
// type is ignored without error.
const (
	MsgChallengeToggled = "challenge_toggled"
	MsgChallengeUpdated = "challenge_updated"
)

// NotificationHandler is invoked for each challenge-change notification.
// The handler re-fetches challenges and re-enforces the active tab.
type NotificationHandler func(ctx context.Context, messageType string)

// wireMessage is the inbound realtime envelope.
type wireMessage struct {
	Type string `json:"type"`
}

// Client is a reconnecting websocket client for the challenge stream.
//
// State machine: disconnected → connecting → connected → disconnected (on
// error/close) → connecting (after backoff) → ... Terminal exit only on
// explicit Close (logout) or when no credential is present in the state
// store — the credential is re-read from the store before every attempt,
// never trusted from memory, because a logout may have happened while the
// process was down or the timer was pending.
//
// The socket handle and the reconnect timer are the only shared mutable
// resources; both are owned here, replaced wholesale under the mutex, and
// never partially mutated.
type Client struct {
	backend backend.ClientInterface
	store   *state.Store
	notify  NotificationHandler

	mu        sync.Mutex
	ctx       context.Context
	conn      *websocket.Conn
	connected bool
	connDone  chan struct{}
	retry     int
	reconnect *time.Timer
	closed    bool
}

// NewClient creates a realtime client. Call Start to connect.
func NewClient(b backend.ClientInterface, s *state.Store, notify NotificationHandler) *Client {
	return &Client{
		backend: b,
		store:   s,
		notify:  notify,
	}
}

// Start records the base context and performs the initial connection
// attempt. Called once, by the supervised service, with a process-lifetime
// context; message handlers reopen the channel through Connect instead, so
// a request-scoped context can never become the client's lifetime. A
// missing credential is not an error: the client simply stays disconnected
// until the next explicit Connect (login).
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	return c.Connect()
}

// Connect establishes the websocket connection. An explicit Connect (login,
// connection check) reopens a client that Close tore down.
//
// Reentrancy guard: if a socket is already open this is a no-op; a stale
// non-open handle is closed first. Multiple triggers (login, keep-alive,
// explicit connection check) may race into this method and must not leave
// duplicate sockets behind.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = false

	if c.conn != nil {
		if c.connected {
			return nil
		}

		// Stale handle from a half-torn-down connection.
		_ = c.conn.Close()
		c.conn = nil
	}

	// A pending reconnect timer is superseded by this attempt.
	c.cancelReconnectLocked()

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	// Lifecycle operations must outlive whichever context happened to
	// carry the triggering event; only Close ends this client. The dial is
	// still bounded by its handshake timeout.
	ctx = context.WithoutCancel(ctx)

	// Re-read the credential: a logout may have happened since this
	// attempt was scheduled.
	st, err := c.store.GetState(ctx)
	if err != nil {
		return fmt.Errorf("read state before connect: %w", err)
	}

	if !st.HasSession() {
		logging.Debug().Msg("realtime connect skipped: no credential")
		return nil
	}

	wsURL, err := c.backend.WebSocketURL()
	if err != nil {
		return fmt.Errorf("derive websocket url: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  handshakeTimeout,
		EnableCompression: true,
	}

	header := map[string][]string{
		"Authorization": {"Bearer " + st.AccessToken},
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if perr := c.store.SetConnectionStatus(ctx, false); perr != nil {
			logging.Error().Err(perr).Msg("persist disconnected status")
		}

		c.scheduleReconnectLocked()

		if resp != nil {
			return fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}

		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	c.connected = true
	c.connDone = make(chan struct{})
	c.retry = 0

	if perr := c.store.SetConnectionStatus(ctx, true); perr != nil {
		logging.Error().Err(perr).Msg("persist connected status")
	}

	metrics.RealtimeConnects.Inc()
	logging.Info().Str("url", wsURL).Msg("realtime socket connected")

	go c.readLoop(conn)
	go c.pingLoop(conn, c.connDone)

	return nil
}

// readLoop consumes inbound messages until the connection dies, then runs
// the teardown/reconnect path.
func (c *Client) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn().Err(err).Msg("realtime socket closed unexpectedly")
			} else {
				logging.Debug().Err(err).Msg("realtime socket closed")
			}

			break
		}

		c.handleMessage(message)
	}

	c.handleClosed(conn)
}

// handleMessage parses one inbound frame. Malformed JSON is logged and
// ignored; it never closes the socket.
func (c *Client) handleMessage(data []byte) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Warn().Err(err).Msg("malformed realtime payload ignored")
		return
	}

	switch msg.Type {
	case MsgChallengeToggled, MsgChallengeUpdated:
		metrics.RealtimeNotifications.WithLabelValues(msg.Type).Inc()
		logging.Info().Str("type", msg.Type).Msg("challenge change notification")

		c.mu.Lock()
		ctx := c.ctx
		c.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}

		if c.notify != nil {
			c.notify(ctx, msg.Type)
		}

	default:
		// Unrecognized types are ignored without error.
		logging.Debug().Str("type", msg.Type).Msg("ignoring realtime message")
	}
}

// pingLoop keeps the connection alive until the conn is torn down.
func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := conn.WriteControl(
				websocket.PingMessage, nil, time.Now().Add(writeWait),
			)
			if err != nil {
				// Force the read loop to notice the dead connection.
				_ = conn.Close()
				return
			}
		}
	}
}

// handleClosed runs once per dead connection: persists the disconnected
// status, clears the handle, and schedules a reconnect unless the client
// was explicitly closed.
func (c *Client) handleClosed(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		// A newer connection superseded this one while it was dying.
		return
	}

	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}

	_ = conn.Close()
	c.conn = nil
	c.connected = false

	// The persisted status must be written even when the base context is
	// already done (process shutdown races this teardown).
	if err := c.store.SetConnectionStatus(c.persistCtxLocked(), false); err != nil {
		logging.Error().Err(err).Msg("persist disconnected status")
	}

	if c.closed {
		return
	}

	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the reconnect timer with exponential
// backoff and jitter. Caller holds c.mu.
func (c *Client) scheduleReconnectLocked() {
	c.cancelReconnectLocked()

	delay := reconnectDelay(c.retry)
	c.retry++

	logging.Info().
		Int("retry", c.retry).
		Dur("delay", delay).
		Msg("scheduling realtime reconnect")

	c.reconnect = time.AfterFunc(delay, func() {
		metrics.RealtimeReconnectAttempts.Inc()

		// Connect re-reads the credential; if the user logged out while
		// this timer was pending, no reconnection occurs.
		if err := c.Connect(); err != nil {
			logging.Warn().Err(err).Msg("realtime reconnect failed")
		}
	})
}

// cancelReconnectLocked stops any pending reconnect. Caller holds c.mu.
func (c *Client) cancelReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
}

// Close tears the channel down: the pending reconnect is cancelled and no
// further reconnection is scheduled until an explicit Connect reopens the
// client. Used on logout and on session invalidation.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.cancelReconnectLocked()

	if c.conn != nil {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = c.conn.Close()
		c.conn = nil
		c.connected = false

		if c.connDone != nil {
			close(c.connDone)
			c.connDone = nil
		}
	}

	if err := c.store.SetConnectionStatus(c.persistCtxLocked(), false); err != nil {
		logging.Error().Err(err).Msg("persist disconnected status")
	}

	logging.Info().Msg("realtime client closed")

	return nil
}

// persistCtxLocked derives a context for store writes that survives
// cancellation of the base context. Caller holds c.mu.
func (c *Client) persistCtxLocked() context.Context {
	if c.ctx == nil {
		return context.Background()
	}

	return context.WithoutCancel(c.ctx)
}

// IsConnected reports whether a live socket is currently open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}
