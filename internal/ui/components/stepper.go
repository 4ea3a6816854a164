package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/fundprep/examgen/internal/ui/theme"
)

// Stepper is a bounded integer slider. Its value never leaves [Min, Max].
type Stepper struct {
	Min, Max int
	Value    int
	Width    int
	Focused  bool
}

// NewStepper creates a stepper; value is clamped into range.
func NewStepper(min, max, value, width int) Stepper {
	s := Stepper{Min: min, Max: max, Width: width}
	s.Set(value)
	return s
}

// Set assigns v, clamped into [Min, Max].
func (s *Stepper) Set(v int) {
	if v < s.Min {
		v = s.Min
	}
	if v > s.Max {
		v = s.Max
	}
	s.Value = v
}

// Update handles left/right while focused.
func (s Stepper) Update(msg tea.Msg) (Stepper, tea.Cmd) {
	if !s.Focused {
		return s, nil
	}
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return s, nil
	}

	switch kmsg.String() {
	case "left", "h", "-":
		s.Set(s.Value - 1)
	case "right", "l", "+":
		s.Set(s.Value + 1)
	case "home":
		s.Set(s.Min)
	case "end":
		s.Set(s.Max)
	}
	return s, nil
}

// View renders a bar with the current value at its right.
func (s Stepper) View() string {
	value := fmt.Sprintf("  %d", s.Value)
	barWidth := s.Width - lipgloss.Width(value) - 4
	if barWidth < 4 {
		barWidth = 4
	}

	span := s.Max - s.Min
	filled := barWidth
	if span > 0 {
		filled = barWidth * (s.Value - s.Min + 1) / (span + 1)
	}

	fill := theme.Secondary
	if s.Focused {
		fill = theme.Accent
	}
	bar := lipgloss.NewStyle().Background(fill).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))

	return "◂ " + bar + " ▸" + theme.Body.Bold(s.Focused).Render(value)
}
