// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// htmlEscaper maps the five characters that are unsafe in markup.
// The replacements match what the chat backend expects to receive.
var htmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// EscapeHTML escapes < > & " and ' in user supplied text.
// Empty input returns an empty string.
func EscapeHTML(s string) string {
	if s == "" {
		return ""
	}
	return htmlEscaper.Replace(s)
}

// TruncateRunes truncates a string to a maximum number of runes (characters).
// This is safe for UTF-8 strings as it counts characters, not bytes.
// If the string is truncated, "..." is appended.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateCells truncates a string to a maximum display width in terminal
// cells. Wide characters (CJK, emoji) count as two cells.
func TruncateCells(s string, maxCells int) string {
	if maxCells <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxCells {
		return s
	}
	if maxCells <= 3 {
		return runewidth.Truncate(s, maxCells, "")
	}
	return runewidth.Truncate(s, maxCells, "...")
}

// CellWidth returns the display width of a string in terminal cells.
func CellWidth(s string) int {
	return runewidth.StringWidth(s)
}
