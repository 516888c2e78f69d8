// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colour palette and lipgloss theme of the chat
client.

# Colors (colors.go)

All colours are lipgloss AdaptiveColor values so the same palette works on
light and dark terminals:

	UserFg, UserBorder           - user message blocks
	AssistantFg, AssistantBorder - assistant message blocks
	SystemFg                     - lifecycle and error notices
	Accent                       - persona indicator, sidebar title
	Danger, Success, Warning     - status colours

# Theme (theme.go)

NewTheme resolves the configured mode ("auto", "dark" or "light"), detects
the terminal profile with termenv and builds every style the view needs:

	theme := styles.NewTheme(cfg.UI.Theme)
	out := theme.UserBlock.Render(text)
*/
package styles
