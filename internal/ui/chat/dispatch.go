// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/jeranaias/personachat/internal/channel"
	"github.com/jeranaias/personachat/internal/events"
	"github.com/jeranaias/personachat/internal/protocol"
	"github.com/jeranaias/personachat/internal/util"
	"github.com/jeranaias/personachat/internal/view"
)

// Lifecycle notices.
const (
	msgConnected      = "Connected to chat session"
	msgNetworkError   = "Error with chat connection. Please check your network."
	reasonClean       = "Connection closed cleanly"
	reasonInterrupted = "Connection interrupted"
)

// unknownPreview bounds the message text logged for unknown frames.
const unknownPreview = 80

// handler reacts to one inbound frame type.
type handler func(m *Model, in protocol.Inbound)

var dispatchTable = map[protocol.Type]handler{
	protocol.TypeResponseStart: func(m *Model, _ protocol.Inbound) {
		m.view.ClearTypingIndicator()
		m.view.CreateAssistantMessage()
	},
	protocol.TypeResponseChunk: func(m *Model, in protocol.Inbound) {
		m.view.AppendAssistantMessage(view.Fragment(in.Message))
	},
	protocol.TypeResponseEnd: func(m *Model, _ protocol.Inbound) {
		m.view.FinalizeAssistantMessage()
		m.view.FocusInput()
	},
	protocol.TypeError: func(m *Model, in protocol.Inbound) {
		m.notice(in.Message)
	},
	protocol.TypeSessionInfo: func(m *Model, in protocol.Inbound) {
		if in.DisableModelSelect {
			m.s.disableModelSelect = true
		}
		m.bus.Publish(events.TopicSessionInfo, in.SessionInfo())
	},
	protocol.TypeModelSelected: func(m *Model, in protocol.Inbound) {
		m.s.selectedModel = in.Model
		m.notice("Model changed to " + in.Model)
	},
}

// Dispatch applies one inbound frame. Unknown types are logged at debug
// level and leave the view untouched. It reports whether the type was
// handled.
func (m *Model) Dispatch(in protocol.Inbound) bool {
	if !in.Type.Known() {
		m.logger.Debug().
			Str("type", in.Type.String()).
			Str("message", util.TruncateRunes(in.Message, unknownPreview)).
			Msg("ignoring message type")
		return false
	}
	dispatchTable[in.Type](m, in)
	return true
}

func (m *Model) handleChannelEvent(ev channel.Event) {
	switch ev.Kind {
	case channel.EventOpen:
		m.handleOpen()
	case channel.EventMessage:
		m.Dispatch(ev.Message)
	case channel.EventClose:
		m.handleClose(ev.Close)
	case channel.EventError:
		m.logger.Error().Err(ev.Err).Msg("websocket error")
		m.notice(msgNetworkError)
	}
}

func (m *Model) handleOpen() {
	m.s.conn = ConnOpen
	if m.s.hasConnectedMessage {
		return
	}
	m.s.hasConnectedMessage = true
	m.notice(msgConnected)
}

func (m *Model) handleClose(info channel.CloseInfo) {
	reason := reasonInterrupted
	if info.Clean {
		reason = reasonClean
	}

	next := "Reconnecting..."
	m.s.conn = ConnReconnecting
	if !info.WillReconnect {
		next = "Reconnect attempts exhausted."
		m.s.conn = ConnDisconnected
	}
	m.notice(fmt.Sprintf("Chat connection closed (%s). %s", reason, next))
}
