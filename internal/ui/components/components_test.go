package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
)

func key(s string) tea.KeyPressMsg {
	switch s {
	case "up":
		return tea.KeyPressMsg{Code: tea.KeyUp}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "left":
		return tea.KeyPressMsg{Code: tea.KeyLeft}
	case "right":
		return tea.KeyPressMsg{Code: tea.KeyRight}
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	}
	r := []rune(s)[0]
	return tea.KeyPressMsg{Code: r, Text: s}
}

func TestStepperStaysInRange(t *testing.T) {
	s := NewStepper(1, 5, 3, 30)
	s.Focused = true

	for i := 0; i < 10; i++ {
		s, _ = s.Update(key("right"))
	}
	if s.Value != 5 {
		t.Errorf("expected value capped at 5, got %d", s.Value)
	}

	for i := 0; i < 10; i++ {
		s, _ = s.Update(key("left"))
	}
	if s.Value != 1 {
		t.Errorf("expected value floored at 1, got %d", s.Value)
	}
}

func TestStepperClampsInitialValue(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1}, {-4, 1}, {7, 7}, {11, 10}, {99, 10},
	}
	for _, tt := range tests {
		s := NewStepper(1, 10, tt.in, 30)
		if s.Value != tt.want {
			t.Errorf("NewStepper(1, 10, %d).Value = %d, want %d", tt.in, s.Value, tt.want)
		}
	}
}

func TestStepperIgnoresKeysWhenBlurred(t *testing.T) {
	s := NewStepper(1, 10, 3, 30)
	s, _ = s.Update(key("right"))
	if s.Value != 3 {
		t.Errorf("blurred stepper moved to %d", s.Value)
	}
}

func TestStepperViewShowsValue(t *testing.T) {
	s := NewStepper(1, 10, 4, 30)
	if !strings.Contains(s.View(), "4") {
		t.Errorf("view %q does not show the value", s.View())
	}
}

func TestChoiceNavigation(t *testing.T) {
	c := NewChoice([]string{"law", "basics", "pe"})
	c.Focused = true

	c, _ = c.Update(key("down"))
	c, _ = c.Update(key("down"))
	c, _ = c.Update(key("down"))
	if c.Value() != "pe" {
		t.Errorf("expected last option, got %q", c.Value())
	}

	c, _ = c.Update(key("up"))
	if c.Value() != "basics" {
		t.Errorf("expected middle option, got %q", c.Value())
	}
}

func TestChoiceEmpty(t *testing.T) {
	c := NewChoice(nil)
	if c.Value() != "" {
		t.Errorf("expected empty value, got %q", c.Value())
	}
}

func TestMenuSkipsDisabled(t *testing.T) {
	var picked string
	pick := func(label string) func() tea.Cmd {
		return func() tea.Cmd {
			picked = label
			return nil
		}
	}
	m := NewMenu([]MenuItem{
		{Label: "off", Disabled: true},
		{Label: "fund", Action: pick("fund")},
		{Label: "hidden", Disabled: true},
		{Label: "custom", Action: pick("custom")},
	})
	if m.Selected != 1 {
		t.Fatalf("expected first enabled item selected, got %d", m.Selected)
	}

	m, _ = m.Update(key("down"))
	if m.Selected != 3 {
		t.Errorf("expected cursor to skip disabled item, got %d", m.Selected)
	}
	m.Update(key("enter"))
	if picked != "custom" {
		t.Errorf("expected custom action, got %q", picked)
	}
}

func TestMenuSelect(t *testing.T) {
	m := NewMenu([]MenuItem{{Label: "a"}, {Label: "b", Disabled: true}, {Label: "c"}})
	m.Select(1)
	if m.Selected != 0 {
		t.Errorf("disabled item must not be selectable, got %d", m.Selected)
	}
	m.Select(2)
	if m.Selected != 2 {
		t.Errorf("expected 2, got %d", m.Selected)
	}
}
