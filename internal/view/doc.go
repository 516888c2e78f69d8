// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package view holds the conversation as an ordered list of blocks (user,
// system, assistant and the transient typing indicator), the sidebar flag and
// the deferred scroll/focus requests, and renders them with lipgloss.
//
// Content arrives through two sink types. Text is plain text (user input is
// HTML-escaped by the caller before it gets here) and is shown with terminal
// control sequences stripped. Fragment is trusted pre-rendered server content
// appended and shown verbatim.
package view
