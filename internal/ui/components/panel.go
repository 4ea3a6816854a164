package components

import (
	"charm.land/lipgloss/v2"

	"github.com/fundprep/examgen/internal/ui/theme"
)

// ContentWidth returns the inner width used for forms and menus so that
// every section lines up.
func ContentWidth(frameWidth int) int {
	w := frameWidth - 6
	if w > 72 {
		w = 72
	}
	if w < 20 {
		w = 20
	}
	return w
}

// Center places content in the middle of the given area.
func Center(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// Card wraps content in a rounded border at content width cw. A focused
// card gets the accent border.
func Card(content string, cw int, focused bool) string {
	style := theme.Card
	if focused {
		style = theme.FocusedCard
	}
	return style.Width(cw).Render(content)
}
