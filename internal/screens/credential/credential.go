package credential

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/router"
	"github.com/fundprep/examgen/internal/screen"
	"github.com/fundprep/examgen/internal/ui/components"
	"github.com/fundprep/examgen/internal/ui/layout"
	"github.com/fundprep/examgen/internal/ui/theme"
)

// ConnectFunc builds a controller that uses the typed key.
type ConnectFunc func(key string) (*exam.Controller, error)

// NextFunc builds the screen shown once a controller is available.
type NextFunc func(ctrl *exam.Controller) screen.Screen

type connectedMsg struct {
	ctrl *exam.Controller
	err  error
}

// CredentialScreen asks once for the API key when none was configured.
// The key lives only in memory.
type CredentialScreen struct {
	keyEnv     string
	input      components.TextInput
	connect    ConnectFunc
	next       NextFunc
	connecting bool
	errMsg     string
}

var _ screen.Screen = (*CredentialScreen)(nil)
var _ screen.KeyHintProvider = (*CredentialScreen)(nil)

// New creates the prompt. keyEnv names the environment variable that
// would have supplied the key.
func New(keyEnv string, connect ConnectFunc, next NextFunc) *CredentialScreen {
	return &CredentialScreen{
		keyEnv:  keyEnv,
		input:   components.NewSecretInput("paste your API key", 48),
		connect: connect,
		next:    next,
	}
}

func (c *CredentialScreen) Init() tea.Cmd {
	return c.input.Focus()
}

func (c *CredentialScreen) Title() string {
	return "API key"
}

func (c *CredentialScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Use key"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (c *CredentialScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case connectedMsg:
		c.connecting = false
		if msg.err != nil {
			c.errMsg = msg.err.Error()
			return c, nil
		}
		next := c.next(msg.ctrl)
		return c, func() tea.Msg {
			return router.ReplaceScreenMsg{Screen: next}
		}

	case tea.KeyPressMsg:
		if msg.String() == "enter" {
			return c, c.submit()
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c *CredentialScreen) submit() tea.Cmd {
	if c.connecting {
		return nil
	}
	key := strings.TrimSpace(c.input.Value())
	if key == "" {
		c.errMsg = "The key cannot be empty."
		return nil
	}
	c.connecting = true
	c.errMsg = ""
	connect := c.connect
	return func() tea.Msg {
		ctrl, err := connect(key)
		return connectedMsg{ctrl: ctrl, err: err}
	}
}

func (c *CredentialScreen) View(width, height int) string {
	sections := []string{
		theme.Title.Render("No API key configured"),
		theme.Subtitle.Render("Set " + c.keyEnv + " to skip this step next time.\nThe key entered here is kept in memory only."),
		c.input.View(),
	}
	switch {
	case c.connecting:
		sections = append(sections, theme.Hint.Render("Connecting…"))
	case c.errMsg != "":
		sections = append(sections, theme.ErrorText.Render(c.errMsg))
	}

	cw := components.ContentWidth(width)
	return components.Center(components.Card(strings.Join(sections, "\n\n"), cw, true), width, height)
}
