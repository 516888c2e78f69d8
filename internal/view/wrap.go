// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package view

import (
	"unicode"

	"github.com/mattn/go-runewidth"
)

// wrappedRows counts the rows the textarea uses for one logical line at the
// given content width. Words move to the next row whole; a word wider than
// the row is split. The trailing cursor cell can open an extra row.
func wrappedRows(line string, width int) int {
	if width < 1 {
		return 1
	}

	rows := 1
	row, word, spaces := 0, 0, 0
	for _, r := range line {
		w := runewidth.RuneWidth(r)
		if unicode.IsSpace(r) {
			spaces++
		} else {
			word += w
		}

		if spaces > 0 {
			if row+word+spaces > width {
				rows++
				row = word + spaces
			} else {
				row += word + spaces
			}
			word, spaces = 0, 0
			continue
		}

		if word+w > width {
			if row > 0 {
				rows++
				row = 0
			}
			row += word
			word = 0
		}
	}

	if row+word+spaces >= width {
		rows++
	}
	return rows
}
