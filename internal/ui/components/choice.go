package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/fundprep/examgen/internal/ui/theme"
)

// Choice is a single-select list. Only one option is chosen at a time and
// the cursor is the choice.
type Choice struct {
	Options  []string
	Selected int
	Focused  bool
}

// NewChoice creates a choice list with the first option selected.
func NewChoice(options []string) Choice {
	return Choice{Options: options}
}

// Value returns the selected option, or "" for an empty list.
func (c Choice) Value() string {
	if c.Selected < 0 || c.Selected >= len(c.Options) {
		return ""
	}
	return c.Options[c.Selected]
}

// Update moves the selection while focused.
func (c Choice) Update(msg tea.Msg) (Choice, tea.Cmd) {
	if !c.Focused {
		return c, nil
	}
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return c, nil
	}

	switch kmsg.String() {
	case "up", "k":
		if c.Selected > 0 {
			c.Selected--
		}
	case "down", "j":
		if c.Selected < len(c.Options)-1 {
			c.Selected++
		}
	}
	return c, nil
}

// View renders the options as radio buttons.
func (c Choice) View() string {
	lines := make([]string, 0, len(c.Options))
	for i, opt := range c.Options {
		switch {
		case i == c.Selected && c.Focused:
			lines = append(lines, theme.Selected.Render("(•) "+opt))
		case i == c.Selected:
			lines = append(lines, theme.Unselected.Render("(•) "+opt))
		default:
			lines = append(lines, theme.Disabled.Render("( ) "+opt))
		}
	}
	return strings.Join(lines, "\n")
}
