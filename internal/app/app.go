package app

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/router"
	"github.com/fundprep/examgen/internal/screen"
	"github.com/fundprep/examgen/internal/screens/credential"
	"github.com/fundprep/examgen/internal/screens/home"
	"github.com/fundprep/examgen/internal/ui/layout"
)

// Options wires the TUI to the rest of the program.
type Options struct {
	Catalog        *exam.Catalog
	DefaultVariant string
	Controller     *exam.Controller

	// Connect builds a controller from a key typed at the prompt. When nil,
	// a missing key is only reported, never asked for.
	Connect credential.ConnectFunc
	KeyEnv  string

	// Status describes a controller for the right of the header. It is
	// asked again when the key prompt hands over a new controller.
	Status func(ctrl *exam.Controller) string
}

// controllerScreen is a screen bound to one controller.
type controllerScreen interface {
	Controller() *exam.Controller
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router   *router.Router
	statusOf func(ctrl *exam.Controller) string
	status   string
	width    int
	height   int
}

// newAppModel picks the first screen: the key prompt when the controller
// cannot run and a prompt is possible, otherwise the variant menu.
func newAppModel(ctx context.Context, opts Options) AppModel {
	toHome := func(ctrl *exam.Controller) screen.Screen {
		return home.New(ctx, ctrl, opts.Catalog, opts.DefaultVariant)
	}

	var first screen.Screen
	if !opts.Controller.Ready() && opts.Connect != nil {
		first = credential.New(opts.KeyEnv, opts.Connect, toHome)
	} else {
		first = toHome(opts.Controller)
	}
	m := AppModel{
		router:   router.New(first),
		statusOf: opts.Status,
	}
	m.refreshStatus(opts.Controller)
	return m
}

func (m *AppModel) refreshStatus(ctrl *exam.Controller) {
	if m.statusOf != nil {
		m.status = m.statusOf(ctrl)
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case router.ReplaceScreenMsg:
		if s, ok := msg.Screen.(controllerScreen); ok {
			m.refreshStatus(s.Controller())
		}

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.CanPop() {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) footerHints() []layout.KeyHint {
	if p, ok := m.router.Active().(screen.KeyHintProvider); ok {
		return p.KeyHints()
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	header := layout.RenderHeader(m.router.Active().Title(), m.status, m.width)
	footer := layout.RenderFooter(m.footerHints(), m.width)

	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the Bubble Tea program and blocks until it exits. Cancelling
// ctx ends the program and any action in flight.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newAppModel(ctx, opts), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
