package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/router"
	"github.com/fundprep/examgen/internal/screen"
	"github.com/fundprep/examgen/internal/screens/form"
	"github.com/fundprep/examgen/internal/ui/components"
	"github.com/fundprep/examgen/internal/ui/theme"
)

// minBannerHeight is the content height below which the banner is dropped.
const minBannerHeight = 30

// HomeScreen lists the catalog's variants.
type HomeScreen struct {
	menu  components.Menu
	ctrl  *exam.Controller
	ready bool
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates the home screen. defaultVariant, when it names a variant,
// starts selected.
func New(ctx context.Context, ctrl *exam.Controller, catalog *exam.Catalog, defaultVariant string) *HomeScreen {
	items := make([]components.MenuItem, 0, len(catalog.Variants)+1)
	selected := 0
	for i, v := range catalog.Variants {
		if v.ID == defaultVariant {
			selected = i
		}
		items = append(items, components.MenuItem{
			Label:  v.Title,
			Detail: summary(v),
			Action: func() tea.Cmd {
				next := form.New(ctx, ctrl, v)
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: next}
				}
			},
		})
	}
	items = append(items, components.MenuItem{
		Label:  "Quit",
		Action: func() tea.Cmd { return tea.Quit },
	})

	menu := components.NewMenu(items)
	menu.Select(selected)
	return &HomeScreen{menu: menu, ctrl: ctrl, ready: ctrl.Ready()}
}

// summary describes a variant in one line.
func summary(v exam.Variant) string {
	var subjects string
	switch {
	case len(v.Subjects) == 0:
		subjects = "any subject"
	case v.AllowCustom:
		subjects = fmt.Sprintf("%d subjects or your own", len(v.Subjects))
	default:
		subjects = fmt.Sprintf("%d subjects", len(v.Subjects))
	}
	return fmt.Sprintf("%s · %d–%d questions", subjects, v.MinCount, v.MaxCount)
}

// Controller returns the controller the menu's forms run on.
func (h *HomeScreen) Controller() *exam.Controller {
	return h.ctrl
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	sections := []string{
		theme.Title.Render("Practice exam generator"),
		theme.Subtitle.Render("Pick a question set"),
		h.menu.View(),
	}
	if !h.ready {
		sections = append(sections, theme.ErrorText.Render("⚠ No API key configured. Generation will fail until one is set."))
	}

	cw := components.ContentWidth(width)
	card := components.Card(strings.Join(sections, "\n\n"), cw, false)
	if height >= minBannerHeight {
		card = lipgloss.JoinVertical(lipgloss.Center, renderBanner(width), "", card)
	}
	return components.Center(card, width, height)
}

func (h *HomeScreen) Title() string {
	return "Home"
}
