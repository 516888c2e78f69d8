// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol defines the JSON frames exchanged with the chat backend.
//
// All frames travel as text messages over a WebSocket at
//
//	<ws|wss>://<host>/ws/chat/<sessionId>/
//
// Inbound frames are discriminated by their "type" field. Outbound frames
// carry no type except model selection; the session identifier is merged
// into every outbound frame by the channel.
//
// # Inbound
//
//   - assistant_response_start
//   - assistant_response_chunk {message}
//   - assistant_response_end
//   - error {message}
//   - session_info {use_persona, disable_toggle, disable_model_select}
//   - model_selected {model}
//
// # Outbound
//
//   - {message, session_id}
//   - {type: "select_model", model, session_id}
//   - {use_persona, session_id}
package protocol
