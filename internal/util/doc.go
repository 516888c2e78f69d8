// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across personachat.
//
// # Key Functions
//
// Text:
//   - EscapeHTML: escapes user input before it is rendered or sent
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateCells: truncation by terminal cell width
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	safe := util.EscapeHTML("<b>hi</b>") // "&lt;b&gt;hi&lt;/b&gt;"
//	label := util.TruncateCells(sessionID, 20)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
