// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persona tracks whether the assistant answers in persona mode and
// forwards user requests to change it. The server locks the toggle once the
// conversation has messages.
package persona

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/personachat/internal/events"
	"github.com/jeranaias/personachat/internal/protocol"
)

// User-facing notices published on events.TopicChatError.
const (
	MsgLocked    = "Toggle is locked due to existing messages."
	MsgNoChannel = "Cannot connect to server. Please try again."
	MsgNoSession = "Invalid session. Please restart with a session id."
)

var (
	ErrToggleLocked = errors.New("persona toggle is locked")
	ErrNoChannel    = errors.New("no chat channel available")
	ErrNoSession    = errors.New("session id not found")
)

// Sender delivers an outbound frame. *channel.Channel satisfies it.
type Sender interface {
	Send(payload any) error
}

// State is a snapshot of the toggle.
type State struct {
	Enabled bool
	Locked  bool
}

// Options configures a Toggle.
type Options struct {
	Bus *events.Bus

	// Sender may be nil until a channel exists; see SetSender.
	Sender Sender

	// SessionID locates the active session. An empty result is an error.
	SessionID func() string

	Logger zerolog.Logger
}

// Toggle is the persona flag. Its handlers run on the bus publisher's
// goroutine.
type Toggle struct {
	bus       *events.Bus
	sessionID func() string
	logger    zerolog.Logger

	mu     sync.Mutex
	sender Sender
	state  State

	unsubscribe []func()
}

// New creates a Toggle subscribed to session-info and update-persona.
func New(opts Options) *Toggle {
	if opts.SessionID == nil {
		opts.SessionID = func() string { return "" }
	}
	t := &Toggle{
		bus:       opts.Bus,
		sessionID: opts.SessionID,
		logger:    opts.Logger.With().Str("component", "persona").Logger(),
		sender:    opts.Sender,
	}

	if t.bus != nil {
		t.unsubscribe = append(t.unsubscribe,
			t.bus.Subscribe(events.TopicSessionInfo, t.onSessionInfo),
			t.bus.Subscribe(events.TopicUpdatePersona, t.onUpdatePersona),
		)
	}
	t.logger.Debug().Msg("persona toggle initialized")
	return t
}

// Close removes the bus subscriptions.
func (t *Toggle) Close() {
	for _, u := range t.unsubscribe {
		u()
	}
	t.unsubscribe = nil
}

// SetSender replaces the outbound sender.
func (t *Toggle) SetSender(s Sender) {
	t.mu.Lock()
	t.sender = s
	t.mu.Unlock()
}

// State returns the current toggle state.
func (t *Toggle) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Enabled reports whether persona mode is on.
func (t *Toggle) Enabled() bool { return t.State().Enabled }

// Locked reports whether changes are refused.
func (t *Toggle) Locked() bool { return t.State().Locked }

func (t *Toggle) onSessionInfo(ev events.Event) {
	info, ok := ev.Payload.(protocol.SessionInfo)
	if !ok {
		t.logger.Warn().Msgf("unexpected session-info payload %T", ev.Payload)
		return
	}

	t.mu.Lock()
	t.state = State{Enabled: info.UsePersona, Locked: info.DisableToggle}
	t.mu.Unlock()

	t.logger.Debug().
		Bool("enabled", info.UsePersona).
		Bool("locked", info.DisableToggle).
		Msg("toggle state updated")
}

func (t *Toggle) onUpdatePersona(ev events.Event) {
	requested, ok := ev.Payload.(bool)
	if !ok {
		t.logger.Warn().Msgf("unexpected update-persona payload %T", ev.Payload)
		return
	}
	_ = t.HandlePersonaUpdate(requested)
}

// HandlePersonaUpdate applies a requested persona state and sends it to the
// server. A locked toggle, a missing sender or a missing session id leaves
// the state untouched and publishes one chat-error notice.
func (t *Toggle) HandlePersonaUpdate(requested bool) error {
	t.mu.Lock()
	locked := t.state.Locked
	sender := t.sender
	t.mu.Unlock()

	if locked {
		t.logger.Warn().Msg("toggle is locked, cannot change")
		return t.fail(ErrToggleLocked, MsgLocked)
	}
	if sender == nil {
		t.logger.Warn().Msg("socket not available, cannot send toggle update")
		return t.fail(ErrNoChannel, MsgNoChannel)
	}
	sessionID := t.sessionID()
	if sessionID == "" {
		t.logger.Error().Msg("session id not found")
		return t.fail(ErrNoSession, MsgNoSession)
	}

	t.mu.Lock()
	t.state.Enabled = requested
	t.mu.Unlock()

	t.logger.Info().Bool("use_persona", requested).Msg("sending toggle update")
	if err := sender.Send(protocol.PersonaUpdate{UsePersona: requested, SessionID: sessionID}); err != nil {
		return fmt.Errorf("send persona update: %w", err)
	}
	return nil
}

func (t *Toggle) fail(err error, notice string) error {
	if t.bus != nil {
		t.bus.Publish(events.TopicChatError, notice)
	}
	return err
}
