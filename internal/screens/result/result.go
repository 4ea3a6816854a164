package result

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/screen"
	"github.com/fundprep/examgen/internal/ui/layout"
	"github.com/fundprep/examgen/internal/ui/theme"
)

// streamOpenedMsg carries the outcome of starting a streaming action.
type streamOpenedMsg struct {
	updates <-chan exam.Update
	err     error
}

// updateMsg is one update read off the action's channel.
type updateMsg struct {
	update exam.Update
	ok     bool
}

// ResultScreen runs one generation and renders the questions as they arrive.
type ResultScreen struct {
	ctx    context.Context
	ctrl   *exam.Controller
	params exam.Params

	spinner  spinner.Model
	viewport viewport.Model

	updates  <-chan exam.Update
	inFlight bool
	text     string
	err      error
	final    exam.Update
	started  time.Time
	elapsed  time.Duration
}

var _ screen.Screen = (*ResultScreen)(nil)
var _ screen.KeyHintProvider = (*ResultScreen)(nil)
var _ screen.Busy = (*ResultScreen)(nil)

// New creates a result screen that starts generating as soon as it is shown.
func New(ctx context.Context, ctrl *exam.Controller, params exam.Params) *ResultScreen {
	vp := viewport.New()
	vp.SoftWrap = true

	return &ResultScreen{
		ctx:    ctx,
		ctrl:   ctrl,
		params: params,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Accent)),
		),
		viewport: vp,
	}
}

func (s *ResultScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.open())
}

func (s *ResultScreen) Title() string {
	return "Questions"
}

// Busy reports whether an action is still running.
func (s *ResultScreen) Busy() bool {
	return s.inFlight
}

func (s *ResultScreen) KeyHints() []layout.KeyHint {
	if s.inFlight {
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Scroll"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
		{Key: "R", Description: "Regenerate"},
		{Key: "Esc", Description: "Back"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// open starts a streaming action. Only one can be in flight per screen.
func (s *ResultScreen) open() tea.Cmd {
	s.inFlight = true
	s.text = ""
	s.err = nil
	s.final = exam.Update{}
	s.started = time.Now()

	ctx, ctrl, req := s.ctx, s.ctrl, exam.BuildPrompt(s.params)
	return func() tea.Msg {
		updates, err := ctrl.Stream(ctx, req)
		return streamOpenedMsg{updates: updates, err: err}
	}
}

func wait(updates <-chan exam.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		return updateMsg{update: u, ok: ok}
	}
}

func (s *ResultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case streamOpenedMsg:
		if msg.err != nil {
			s.done(msg.err)
			return s, nil
		}
		s.updates = msg.updates
		return s, wait(s.updates)

	case updateMsg:
		if !msg.ok {
			s.done(nil)
			return s, nil
		}
		s.setText(msg.update.Text)
		if msg.update.Final {
			s.final = msg.update
			s.done(msg.update.Err)
			return s, nil
		}
		return s, wait(s.updates)

	case spinner.TickMsg:
		if !s.inFlight || s.text != "" {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyPressMsg:
		if msg.String() == "r" && !s.inFlight {
			return s, tea.Batch(s.spinner.Tick, s.open())
		}
		var cmd tea.Cmd
		s.viewport, cmd = s.viewport.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *ResultScreen) done(err error) {
	s.inFlight = false
	s.err = err
	s.elapsed = time.Since(s.started)
	s.updates = nil
}

func (s *ResultScreen) setText(text string) {
	follow := s.viewport.AtBottom()
	s.text = text
	s.viewport.SetContent(s.body())
	if follow {
		s.viewport.GotoBottom()
	}
}

// body is the scrollable content: the text so far plus, once the action
// ended, the outcome line.
func (s *ResultScreen) body() string {
	var b strings.Builder
	b.WriteString(theme.Body.Render(s.text))
	if !s.inFlight {
		if s.text != "" {
			b.WriteString("\n\n")
		}
		b.WriteString(s.outcome())
	}
	return b.String()
}

func (s *ResultScreen) outcome() string {
	if s.err != nil {
		return theme.ErrorText.Render("✗ " + exam.Describe(s.err))
	}
	line := fmt.Sprintf("✓ Generated in %s", s.elapsed.Round(100*time.Millisecond))
	if u := s.final.Usage; u.TotalTokens > 0 {
		line += fmt.Sprintf(" · %d tokens", u.TotalTokens)
	}
	return theme.SuccessText.Render(line)
}

func (s *ResultScreen) heading() string {
	return theme.Title.Render(s.params.Subject) + "\n" +
		theme.Subtitle.Render(fmt.Sprintf("%d questions · focus: %s", s.params.QuestionCount, focusLabel(s.params.FocusTopic)))
}

func focusLabel(focus string) string {
	if focus == "" {
		return "general"
	}
	return focus
}

func (s *ResultScreen) View(width, height int) string {
	heading := s.heading()
	bodyHeight := height - lipgloss.Height(heading) - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	if s.inFlight && s.text == "" {
		waiting := s.spinner.View() + " " + theme.Hint.Render("Generating questions…")
		return heading + "\n" + lipgloss.Place(width, bodyHeight, lipgloss.Center, lipgloss.Center, waiting)
	}

	s.viewport.SetWidth(width)
	s.viewport.SetHeight(bodyHeight)
	s.viewport.SetContent(s.body())
	return heading + "\n" + s.viewport.View()
}
