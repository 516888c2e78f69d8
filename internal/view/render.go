// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	userLabel      = "You"
	assistantLabel = "Assistant"
	minBlockWidth  = 10
)

// Render draws the conversation for a message pane of the given width.
func (v *View) Render(width int) string {
	if len(v.blocks) == 0 {
		return v.theme.Hint.Render("No messages yet. Type below and press Enter.")
	}

	inner := width - 4 // border + padding
	if inner < minBlockWidth {
		inner = minBlockWidth
	}

	parts := make([]string, 0, len(v.blocks))
	for _, b := range v.blocks {
		parts = append(parts, v.renderBlock(b, inner))
	}
	return strings.Join(parts, "\n")
}

func (v *View) renderBlock(b Block, inner int) string {
	t := v.theme
	switch b.Kind {
	case KindUser:
		label := t.UserLabel.Render(userLabel)
		body := t.UserBlock.Width(inner).Render(displayText(b))
		return lipgloss.JoinVertical(lipgloss.Left, label, body)

	case KindAssistant:
		label := t.AssistantLabel.Render(assistantLabel)
		content := displayText(b)
		if b.ID == v.streaming {
			content += "▌"
		}
		body := t.AssistantBlock.Width(inner).Render(content)
		return lipgloss.JoinVertical(lipgloss.Left, label, body)

	case KindSystem:
		return t.SystemBlock.Width(inner + 2).Render(displayText(b))

	case KindTyping:
		return t.Typing.Render(v.typingFrame)
	}
	return ""
}

// displayText returns the block content as it should appear on screen.
// Text has terminal escape sequences and control characters removed;
// fragments are written as received.
func displayText(b Block) string {
	if b.Trusted {
		return b.Content
	}
	return sanitize(b.Content)
}

func sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
