// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the root Bubble Tea model of the personachat client.

The Model wires a socket channel, the conversation view and the persona
toggle together. Channel events arrive as ChannelEventMsg values, one at a
time and in order, and are either turned into view mutations or broadcast on
the event bus.

# Inbound dispatch (dispatch.go)

	assistant_response_start  clear typing indicator, open assistant block
	assistant_response_chunk  append fragment to the open block
	assistant_response_end    finalize block, refocus input
	error                     system message
	session_info              update flags, broadcast session-info
	model_selected            remember model, confirmation message
	anything else             debug log only

# Keys (keys.go)

	Enter              send
	Alt+Enter, Ctrl+J  newline
	PgUp, PgDn         scroll
	Ctrl+B             toggle sidebar
	Ctrl+P             toggle persona mode
	Ctrl+X             clear all chats (asks for confirmation)
	Ctrl+C, Ctrl+Q     quit

The input also accepts "/model NAME" to ask the server for another model.
*/
package chat
