// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/personachat/internal/channel"
)

// ChannelEventMsg delivers one event from the socket channel.
type ChannelEventMsg struct {
	Event channel.Event
}

// ScrollToBottomMsg moves the message pane to its end once layout has
// settled.
type ScrollToBottomMsg struct{}

// FocusInputMsg focuses the input box.
type FocusInputMsg struct{}

// scrollSettleDelay is the wait before a requested scroll is applied.
const scrollSettleDelay = 50 * time.Millisecond

// ScrollToBottomCmd schedules a ScrollToBottomMsg.
func ScrollToBottomCmd() tea.Cmd {
	return tea.Tick(scrollSettleDelay, func(time.Time) tea.Msg {
		return ScrollToBottomMsg{}
	})
}

// FocusInputCmd schedules a FocusInputMsg on the next update.
func FocusInputCmd() tea.Cmd {
	return func() tea.Msg { return FocusInputMsg{} }
}
