// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// Type is the discriminator carried in the "type" field of a frame.
type Type string

const (
	TypeResponseStart Type = "assistant_response_start"
	TypeResponseChunk Type = "assistant_response_chunk"
	TypeResponseEnd   Type = "assistant_response_end"
	TypeError         Type = "error"
	TypeSessionInfo   Type = "session_info"
	TypeModelSelected Type = "model_selected"

	// TypeSelectModel is the only typed outbound frame.
	TypeSelectModel Type = "select_model"
)

// String returns the wire form of the type.
func (t Type) String() string {
	return string(t)
}

// Known reports whether inbound frames of this type are handled.
func (t Type) Known() bool {
	switch t {
	case TypeResponseStart, TypeResponseChunk, TypeResponseEnd,
		TypeError, TypeSessionInfo, TypeModelSelected:
		return true
	}
	return false
}

// =============================================================================
// INBOUND
// =============================================================================

// Inbound is any frame received from the backend. Fields not used by a
// given type are left at their zero value.
type Inbound struct {
	Type Type `json:"type"`

	// Message is the fragment for chunks and the text for errors.
	Message string `json:"message,omitempty"`

	// Model is set on model_selected.
	Model string `json:"model,omitempty"`

	// session_info fields
	UsePersona         bool `json:"use_persona,omitempty"`
	DisableToggle      bool `json:"disable_toggle,omitempty"`
	DisableModelSelect bool `json:"disable_model_select,omitempty"`
}

// UnmarshalJSON decodes a frame. A non-string message (an object or number
// from a misbehaving backend) is kept as its compact JSON text instead of
// failing the whole frame.
func (in *Inbound) UnmarshalJSON(data []byte) error {
	type plain Inbound
	var raw struct {
		plain
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = Inbound(raw.plain)
	in.Message = messageText(raw.Message)
	return nil
}

func messageText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// SessionInfo is the payload of a session_info frame, broadcast to
// components that follow session state.
type SessionInfo struct {
	UsePersona         bool
	DisableToggle      bool
	DisableModelSelect bool
}

// SessionInfo extracts the session_info fields of the frame.
func (in Inbound) SessionInfo() SessionInfo {
	return SessionInfo{
		UsePersona:         in.UsePersona,
		DisableToggle:      in.DisableToggle,
		DisableModelSelect: in.DisableModelSelect,
	}
}

// =============================================================================
// OUTBOUND
// =============================================================================

// ChatMessage carries one escaped user message.
type ChatMessage struct {
	Message string `json:"message"`
}

// SelectModel asks the backend to switch the session's model.
type SelectModel struct {
	Type  Type   `json:"type"`
	Model string `json:"model"`
}

// NewSelectModel builds a select_model frame.
func NewSelectModel(model string) SelectModel {
	return SelectModel{Type: TypeSelectModel, Model: model}
}

// PersonaUpdate toggles persona mode. SessionID is carried explicitly
// because the toggle resolves the session on its own.
type PersonaUpdate struct {
	UsePersona bool   `json:"use_persona"`
	SessionID  string `json:"session_id"`
}
