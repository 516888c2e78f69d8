// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jeranaias/personachat/internal/protocol"
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

const (
	// DefaultMaxReconnectAttempts caps consecutive reconnects.
	DefaultMaxReconnectAttempts = 5

	// Unlimited disables the reconnect cap.
	Unlimited = -1

	// DefaultReconnectDelay is the fixed wait before each reconnect.
	DefaultReconnectDelay = 3 * time.Second

	// DefaultHandshakeTimeout bounds the opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultEventBuffer is the capacity of the Events stream.
	DefaultEventBuffer = 64
)

var (
	// ErrNotConnected is returned by Send when the channel is not open.
	ErrNotConnected = errors.New("websocket is not connected")

	// ErrInvalidPayload is returned by Send for payloads that are neither a
	// non-empty string nor a JSON object.
	ErrInvalidPayload = errors.New("invalid message format")

	// ErrMalformedFrame wraps inbound frames that are not valid JSON.
	ErrMalformedFrame = errors.New("invalid websocket message")
)

// =============================================================================
// STATE
// =============================================================================

// State is the connection state. Only the Channel changes it.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosedClean
	StateClosedError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedClean:
		return "closed"
	case StateClosedError:
		return "closed-error"
	default:
		return "unknown"
	}
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Channel.
type Options struct {
	// URL is the full socket URL (see protocol.ChannelURL).
	URL string

	// SessionID is merged into every outbound frame.
	SessionID string

	// MaxReconnectAttempts caps consecutive reconnects. Zero selects
	// DefaultMaxReconnectAttempts; Unlimited (or any negative) removes the cap.
	MaxReconnectAttempts int

	// ReconnectDelay is the fixed delay before a reconnect.
	ReconnectDelay time.Duration

	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration

	// Header is sent with the opening handshake (e.g. a session cookie).
	Header http.Header

	// EventBuffer is the capacity of the Events stream.
	EventBuffer int

	Logger zerolog.Logger
}

// =============================================================================
// CHANNEL
// =============================================================================

// Channel is a reconnecting JSON-over-WebSocket connection. One goroutine
// (the owner) calls Connect and Close; any goroutine may call Send.
type Channel struct {
	opts   Options
	logger zerolog.Logger
	dialer *websocket.Dialer
	events chan Event

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	attempts int
	timer    *time.Timer
	closed   bool // Close was called
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc

	writeMu sync.Mutex
}

// New creates a Channel. It does not connect.
func New(opts Options) *Channel {
	if opts.MaxReconnectAttempts == 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	return &Channel{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "channel").Logger(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		events: make(chan Event, opts.EventBuffer),
		state:  StateDisconnected,
	}
}

// Events returns the ordered stream of channel events. It is never closed;
// consumers stop reading when their own context ends.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the number of reconnects scheduled since the last
// successful open.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// SessionID returns the session identifier stamped on outbound frames.
func (c *Channel) SessionID() string {
	return c.opts.SessionID
}

// Connect starts connecting in the background. It is a no-op while the
// channel is connecting or open. ctx bounds the channel's lifetime:
// cancelling it tears down the connection and any pending reconnect.
func (c *Channel) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnecting || c.state == StateOpen {
		c.logger.Debug().Str("state", c.state.String()).Msg("connection already exists")
		return
	}

	if c.ctx == nil || c.ctx.Err() != nil {
		c.ctx, c.cancel = context.WithCancel(ctx)
	}
	c.closed = false
	c.connectLocked()
}

// connectLocked starts a new connection generation. Goroutines from older
// generations observe the mismatch and exit without touching state.
func (c *Channel) connectLocked() {
	c.stopTimerLocked()
	c.state = StateConnecting
	c.gen++
	go c.run(c.ctx, c.gen)
}

func (c *Channel) run(ctx context.Context, gen uint64) {
	c.logger.Info().Str("url", c.opts.URL).Msg("connecting to chat socket")

	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			c.finish(gen, StateDisconnected)
			return
		}
		c.logger.Error().Err(err).Msg("chat socket dial failed")
		c.emit(ctx, Event{Kind: EventError, Err: fmt.Errorf("dial chat socket: %w", err)})
		c.handleClose(ctx, gen, CloseInfo{Clean: false, Code: websocket.CloseAbnormalClosure, Reason: err.Error()})
		return
	}

	c.mu.Lock()
	if gen != c.gen || c.closed || ctx.Err() != nil {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info().Msg("chat socket connection established")
	c.emit(ctx, Event{Kind: EventOpen})

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	c.readLoop(ctx, gen, conn)
}

func (c *Channel) readLoop(ctx context.Context, gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				c.finish(gen, StateClosedClean)
				return
			}
			c.handleClose(ctx, gen, closeInfo(err))
			return
		}

		var in protocol.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.logger.Error().Err(err).Int("bytes", len(data)).Msg("invalid websocket message")
			c.emit(ctx, Event{Kind: EventError, Err: fmt.Errorf("%w: %v", ErrMalformedFrame, err)})
			continue
		}

		c.logger.Trace().Str("type", in.Type.String()).Msg("frame received")
		c.emit(ctx, Event{Kind: EventMessage, Message: in})
	}
}

// closeInfo classifies a read error. A received close frame (anything but
// 1006) completed the closing handshake and counts as clean.
func closeInfo(err error) CloseInfo {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return CloseInfo{
			Clean:  ce.Code != websocket.CloseAbnormalClosure,
			Code:   ce.Code,
			Reason: ce.Text,
		}
	}
	return CloseInfo{Clean: false, Code: websocket.CloseAbnormalClosure, Reason: err.Error()}
}

// handleClose records an unexpected close, publishes it and schedules at
// most one reconnect for this generation.
func (c *Channel) handleClose(ctx context.Context, gen uint64, info CloseInfo) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if info.Clean {
		c.state = StateClosedClean
	} else {
		c.state = StateClosedError
	}
	retry := c.canRetryLocked()
	if retry {
		c.attempts++
		info.WillReconnect = true
	}
	info.Attempt = c.attempts
	c.mu.Unlock()

	c.logger.Warn().
		Int("code", info.Code).
		Str("reason", info.Reason).
		Bool("clean", info.Clean).
		Bool("reconnect", info.WillReconnect).
		Int("attempt", info.Attempt).
		Msg("chat socket closed")
	c.emit(ctx, Event{Kind: EventClose, Close: info})

	if !retry {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.closed || ctx.Err() != nil {
		return
	}
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.opts.ReconnectDelay, func() { c.reconnect(gen) })
}

func (c *Channel) canRetryLocked() bool {
	if c.opts.MaxReconnectAttempts < 0 {
		return true
	}
	return c.attempts < c.opts.MaxReconnectAttempts
}

func (c *Channel) reconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timer = nil
	if gen != c.gen || c.closed || c.ctx == nil || c.ctx.Err() != nil {
		return
	}
	if c.state == StateConnecting || c.state == StateOpen {
		return
	}
	c.logger.Info().Int("attempt", c.attempts).Msg("reconnecting to chat socket")
	c.connectLocked()
}

// finish settles state for a generation torn down by context cancellation.
func (c *Channel) finish(gen uint64, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.conn = nil
	c.state = state
	c.stopTimerLocked()
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// =============================================================================
// SEND
// =============================================================================

// Send encodes payload as one JSON text frame with the session identifier
// merged in. A string payload is sent as {"message": payload}; maps and
// structs must encode to a JSON object. Failures are returned and also
// published as an EventError; nothing reaches the network.
func (c *Channel) Send(payload any) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		c.logger.Error().Msg("websocket is not connected")
		c.report(ErrNotConnected)
		return ErrNotConnected
	}

	frame, err := c.encode(payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("invalid message format")
		c.report(err)
		return err
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		err = fmt.Errorf("write chat frame: %w", err)
		c.logger.Error().Err(err).Msg("send failed")
		c.report(err)
		return err
	}

	c.logger.Debug().Int("bytes", len(frame)).Msg("frame sent")
	return nil
}

func (c *Channel) encode(payload any) ([]byte, error) {
	var obj map[string]any

	switch p := payload.(type) {
	case nil:
		return nil, ErrInvalidPayload
	case string:
		if p == "" {
			return nil, ErrInvalidPayload
		}
		obj = map[string]any{"message": p}
	case map[string]any:
		obj = make(map[string]any, len(p)+1)
		for k, v := range p {
			obj[k] = v
		}
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return nil, ErrInvalidPayload
		}
	}

	obj["session_id"] = c.opts.SessionID
	frame, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return frame, nil
}

// =============================================================================
// CLOSE
// =============================================================================

// Close closes the connection with a normal-closure frame and cancels any
// pending reconnect. No reconnect follows an explicit Close; a later
// Connect starts over.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	conn := c.conn
	c.conn = nil
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
	if c.state == StateOpen || c.state == StateConnecting {
		c.state = StateClosedClean
	}
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.logger.Info().Msg("closing chat socket")
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return conn.Close()
}

// =============================================================================
// EVENT DELIVERY
// =============================================================================

// emit delivers ev in order, blocking until the consumer reads it or ctx
// ends.
func (c *Channel) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// report publishes a send-side error without blocking: the caller of Send
// is usually the events consumer itself.
func (c *Channel) report(err error) {
	select {
	case c.events <- Event{Kind: EventError, Err: err}:
	default:
		c.logger.Warn().Err(err).Msg("event buffer full, dropping error event")
	}
}
