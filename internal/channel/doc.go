// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package channel owns the WebSocket connection to the chat backend.
//
// A Channel dials in the background, decodes inbound frames into
// protocol.Inbound values and publishes everything that happens to it as
// an ordered stream of Events:
//
//	ch := channel.New(channel.Options{URL: url, SessionID: id, Logger: log})
//	ch.Connect(ctx)
//	for ev := range ch.Events() {
//	    switch ev.Kind {
//	    case channel.EventOpen:
//	    case channel.EventMessage:
//	    case channel.EventClose:
//	    case channel.EventError:
//	    }
//	}
//
// # Reconnect Policy
//
// When the connection closes without Close being called, exactly one
// reconnect is scheduled after a fixed delay, up to MaxReconnectAttempts
// consecutive attempts (negative means unbounded). A successful open resets
// the counter. Close and context cancellation stop any pending reconnect.
//
// # Sending
//
// Send never queues. Frames attempted while the channel is not open are
// rejected with ErrNotConnected and reported as an EventError.
package channel
