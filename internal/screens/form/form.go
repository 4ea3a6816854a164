package form

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/llm"
	"github.com/fundprep/examgen/internal/router"
	"github.com/fundprep/examgen/internal/screen"
	"github.com/fundprep/examgen/internal/screens/result"
	"github.com/fundprep/examgen/internal/ui/components"
	"github.com/fundprep/examgen/internal/ui/layout"
	"github.com/fundprep/examgen/internal/ui/theme"
)

type field int

const (
	fieldSubject field = iota
	fieldCustom
	fieldCount
	fieldFocus
	fieldGenerate
)

const inputWidth = 48

// FormScreen collects the parameters of one generation.
type FormScreen struct {
	ctx     context.Context
	ctrl    *exam.Controller
	variant exam.Variant

	subjects components.Choice
	custom   components.TextInput
	count    components.Stepper
	focus    components.TextInput
	generate components.Button

	active field
	errMsg string
}

var _ screen.Screen = (*FormScreen)(nil)
var _ screen.KeyHintProvider = (*FormScreen)(nil)

// New creates a form for variant v.
func New(ctx context.Context, ctrl *exam.Controller, v exam.Variant) *FormScreen {
	options := make([]string, 0, len(v.Subjects)+1)
	for _, s := range v.Subjects {
		options = append(options, s.Label)
	}
	if v.AllowCustom && len(v.Subjects) > 0 {
		options = append(options, v.CustomLabel)
	}

	f := &FormScreen{
		ctx:      ctx,
		ctrl:     ctrl,
		variant:  v,
		subjects: components.NewChoice(options),
		custom:   components.NewTextInput("e.g. Futures Practitioner: Futures Law", 200, inputWidth),
		count:    components.NewStepper(v.MinCount, v.MaxCount, v.DefaultCount, inputWidth),
		focus:    components.NewTextInput(exam.DefaultFocus, 200, inputWidth),
		generate: components.Button{Label: "Generate questions"},
	}
	f.setActive(f.fields()[0])
	return f
}

func (f *FormScreen) Init() tea.Cmd {
	return nil
}

func (f *FormScreen) Title() string {
	return f.variant.Title
}

func (f *FormScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Tab", Description: "Next field"}}
	switch f.active {
	case fieldSubject:
		hints = append(hints, layout.KeyHint{Key: "↑↓", Description: "Subject"})
	case fieldCount:
		hints = append(hints, layout.KeyHint{Key: "←→", Description: "Count"})
	}
	return append(hints,
		layout.KeyHint{Key: "Enter", Description: "Generate"},
		layout.KeyHint{Key: "Esc", Description: "Back"},
	)
}

// customSelected reports whether the subject comes from the free-text input.
func (f *FormScreen) customSelected() bool {
	if len(f.variant.Subjects) == 0 {
		return true
	}
	return f.subjects.Selected >= len(f.variant.Subjects)
}

// fields lists the focusable fields in tab order.
func (f *FormScreen) fields() []field {
	var out []field
	if len(f.subjects.Options) > 0 {
		out = append(out, fieldSubject)
	}
	if f.customSelected() {
		out = append(out, fieldCustom)
	}
	return append(out, fieldCount, fieldFocus, fieldGenerate)
}

func (f *FormScreen) move(delta int) tea.Cmd {
	fields := f.fields()
	idx := 0
	for i, fl := range fields {
		if fl == f.active {
			idx = i
		}
	}
	idx = (idx + delta + len(fields)) % len(fields)
	return f.setActive(fields[idx])
}

func (f *FormScreen) setActive(fl field) tea.Cmd {
	f.active = fl
	f.subjects.Focused = fl == fieldSubject
	f.count.Focused = fl == fieldCount
	f.generate.Focused = fl == fieldGenerate

	f.custom.Blur()
	f.focus.Blur()
	switch fl {
	case fieldCustom:
		return f.custom.Focus()
	case fieldFocus:
		return f.focus.Focus()
	}
	return nil
}

func (f *FormScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyPressMsg); ok {
		switch kmsg.String() {
		case "tab":
			return f, f.move(1)
		case "shift+tab":
			return f, f.move(-1)
		case "enter":
			if f.active == fieldGenerate || f.active == fieldFocus {
				return f, f.submit()
			}
			return f, f.move(1)
		}
	}

	var cmd tea.Cmd
	switch f.active {
	case fieldSubject:
		f.subjects, cmd = f.subjects.Update(msg)
	case fieldCustom:
		f.custom, cmd = f.custom.Update(msg)
	case fieldCount:
		f.count, cmd = f.count.Update(msg)
	case fieldFocus:
		f.focus, cmd = f.focus.Update(msg)
	}
	return f, cmd
}

// Params resolves the current form values.
func (f *FormScreen) Params() (exam.Params, error) {
	choice := ""
	if f.customSelected() {
		choice = exam.CustomChoice
	} else {
		choice = f.variant.Subjects[f.subjects.Selected].ID
	}
	return exam.NewParams(f.variant, choice, f.custom.Value(), f.count.Value, f.focus.Value())
}

func (f *FormScreen) submit() tea.Cmd {
	p, err := f.Params()
	if err != nil {
		f.errMsg = exam.Describe(err)
		return nil
	}
	if !f.ctrl.Ready() {
		f.errMsg = exam.Describe(llm.ErrMissingCredential)
		return nil
	}
	f.errMsg = ""
	next := result.New(f.ctx, f.ctrl, p)
	return func() tea.Msg {
		return router.PushScreenMsg{Screen: next}
	}
}

func (f *FormScreen) label(fl field, text string) string {
	if f.active == fl {
		return theme.FocusedLabel.Render(text)
	}
	return theme.Label.Render(text)
}

func (f *FormScreen) View(width, height int) string {
	var sections []string

	if len(f.subjects.Options) > 0 {
		sections = append(sections, f.label(fieldSubject, "Subject")+"\n"+f.subjects.View())
	}
	if f.customSelected() {
		sections = append(sections, f.label(fieldCustom, f.variant.CustomLabel)+"\n"+f.custom.View())
	}
	sections = append(sections,
		f.label(fieldCount, fmt.Sprintf("Number of questions (%d–%d)", f.variant.MinCount, f.variant.MaxCount))+"\n"+f.count.View(),
		f.label(fieldFocus, "Focus topic (optional)")+"\n"+f.focus.View(),
		f.generate.View(),
	)
	if f.errMsg != "" {
		sections = append(sections, theme.ErrorText.Render(f.errMsg))
	}

	cw := components.ContentWidth(width)
	return components.Center(components.Card(strings.Join(sections, "\n\n"), cw, false), width, height)
}
