// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package channel

import "github.com/jeranaias/personachat/internal/protocol"

// EventKind identifies what happened on the channel.
type EventKind int

const (
	EventOpen EventKind = iota + 1
	EventMessage
	EventClose
	EventError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// CloseInfo describes a connection close.
type CloseInfo struct {
	// Clean is true when the closing handshake completed.
	Clean  bool
	Code   int
	Reason string

	// WillReconnect is true when a reconnect has been scheduled.
	WillReconnect bool

	// Attempt is the reconnect attempt number after this close.
	Attempt int
}

// Event is one entry of the channel's event stream. Only the field that
// matches Kind is set.
type Event struct {
	Kind    EventKind
	Message protocol.Inbound
	Close   CloseInfo
	Err     error
}
