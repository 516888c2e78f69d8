// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/personachat/internal/events"
	"github.com/jeranaias/personachat/internal/protocol"
)

type recordingSender struct {
	sent []any
	err  error
}

func (s *recordingSender) Send(payload any) error {
	s.sent = append(s.sent, payload)
	return s.err
}

type fixture struct {
	bus    *events.Bus
	sender *recordingSender
	toggle *Toggle
	errors []string
}

func newFixture(t *testing.T, sessionID string) *fixture {
	t.Helper()
	f := &fixture{bus: events.NewBus(), sender: &recordingSender{}}
	f.bus.Subscribe(events.TopicChatError, func(ev events.Event) {
		f.errors = append(f.errors, ev.Payload.(string))
	})
	f.toggle = New(Options{
		Bus:       f.bus,
		Sender:    f.sender,
		SessionID: func() string { return sessionID },
		Logger:    zerolog.Nop(),
	})
	t.Cleanup(f.toggle.Close)
	return f
}

func TestSessionInfoUpdatesState(t *testing.T) {
	f := newFixture(t, "s-1")

	f.bus.Publish(events.TopicSessionInfo, protocol.SessionInfo{UsePersona: true, DisableToggle: true})
	assert.Equal(t, State{Enabled: true, Locked: true}, f.toggle.State())

	f.bus.Publish(events.TopicSessionInfo, protocol.SessionInfo{})
	assert.Equal(t, State{}, f.toggle.State())

	f.bus.Publish(events.TopicSessionInfo, "garbage")
	assert.Equal(t, State{}, f.toggle.State())
}

func TestUpdateSendsPersonaFrame(t *testing.T) {
	f := newFixture(t, "s-1")

	require.NoError(t, f.toggle.HandlePersonaUpdate(true))
	assert.True(t, f.toggle.Enabled())
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, protocol.PersonaUpdate{UsePersona: true, SessionID: "s-1"}, f.sender.sent[0])
	assert.Empty(t, f.errors)
}

func TestUpdateViaBus(t *testing.T) {
	f := newFixture(t, "s-1")

	f.bus.Publish(events.TopicUpdatePersona, true)
	assert.True(t, f.toggle.Enabled())
	assert.Len(t, f.sender.sent, 1)
}

func TestLockedToggleRefuses(t *testing.T) {
	f := newFixture(t, "s-1")
	f.bus.Publish(events.TopicSessionInfo, protocol.SessionInfo{UsePersona: false, DisableToggle: true})

	err := f.toggle.HandlePersonaUpdate(true)
	assert.ErrorIs(t, err, ErrToggleLocked)
	assert.False(t, f.toggle.Enabled(), "state is unchanged")
	assert.Empty(t, f.sender.sent)
	assert.Equal(t, []string{MsgLocked}, f.errors)
}

func TestMissingSenderRefuses(t *testing.T) {
	f := newFixture(t, "s-1")
	f.toggle.SetSender(nil)

	err := f.toggle.HandlePersonaUpdate(true)
	assert.ErrorIs(t, err, ErrNoChannel)
	assert.False(t, f.toggle.Enabled())
	assert.Equal(t, []string{MsgNoChannel}, f.errors)
}

func TestMissingSessionRefuses(t *testing.T) {
	f := newFixture(t, "")

	err := f.toggle.HandlePersonaUpdate(true)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, f.toggle.Enabled())
	assert.Empty(t, f.sender.sent)
	assert.Equal(t, []string{MsgNoSession}, f.errors)
}

func TestSendFailureIsReturned(t *testing.T) {
	f := newFixture(t, "s-1")
	f.sender.err = errors.New("websocket is not connected")

	err := f.toggle.HandlePersonaUpdate(true)
	require.Error(t, err)
	assert.ErrorIs(t, err, f.sender.err)
	assert.Empty(t, f.errors, "transport errors are reported by the channel")
}

func TestCloseUnsubscribes(t *testing.T) {
	f := newFixture(t, "s-1")
	f.toggle.Close()

	f.bus.Publish(events.TopicSessionInfo, protocol.SessionInfo{UsePersona: true})
	assert.False(t, f.toggle.Enabled())
	assert.Equal(t, 0, f.bus.Subscribers(events.TopicUpdatePersona))
}
