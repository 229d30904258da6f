// Package ui styles terminal output with [lipgloss].
//
// [Styles] is the shared palette for status lines. [SelectionGrid] draws the album selection as the
// 2x2 layout the cover will have, with empty slots shaded in the cover's placeholder colors.
package ui
