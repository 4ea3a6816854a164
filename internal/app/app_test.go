package app

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/llm"
	"github.com/fundprep/examgen/internal/router"
	"github.com/fundprep/examgen/internal/screen"
	"github.com/fundprep/examgen/internal/screens/credential"
	"github.com/fundprep/examgen/internal/screens/home"
)

// busyScreen reports busy until released.
type busyScreen struct{ busy bool }

func (s *busyScreen) Init() tea.Cmd                           { return nil }
func (s *busyScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *busyScreen) View(int, int) string                    { return "working" }
func (s *busyScreen) Title() string                           { return "Questions" }
func (s *busyScreen) Busy() bool                              { return s.busy }

var esc = tea.KeyPressMsg{Code: tea.KeyEscape}

func options(cred llm.Credential) Options {
	return Options{
		Catalog:    exam.DefaultCatalog(),
		Controller: exam.NewController(llm.NewMockProvider(), cred),
		KeyEnv:     "GOOGLE_API_KEY",
	}
}

func TestStartsOnHomeWithKey(t *testing.T) {
	m := newAppModel(context.Background(), options(llm.NewCredential("k")))
	if _, ok := m.router.Active().(*home.HomeScreen); !ok {
		t.Errorf("expected home screen, got %T", m.router.Active())
	}
}

func TestStartsOnPromptWithoutKey(t *testing.T) {
	opts := options(llm.NewCredential(""))
	opts.Connect = func(key string) (*exam.Controller, error) {
		return exam.NewController(llm.NewMockProvider(), llm.NewCredential(key)), nil
	}
	m := newAppModel(context.Background(), opts)
	if _, ok := m.router.Active().(*credential.CredentialScreen); !ok {
		t.Errorf("expected credential prompt, got %T", m.router.Active())
	}
}

func TestNoPromptWithoutConnect(t *testing.T) {
	m := newAppModel(context.Background(), options(llm.NewCredential("")))
	if _, ok := m.router.Active().(*home.HomeScreen); !ok {
		t.Errorf("expected home screen, got %T", m.router.Active())
	}
}

func TestStatusFollowsTypedKey(t *testing.T) {
	opts := options(llm.NewCredential(""))
	opts.Connect = func(key string) (*exam.Controller, error) {
		return exam.NewController(llm.NewMockProvider(), llm.NewCredential(key)), nil
	}
	opts.Status = func(ctrl *exam.Controller) string {
		if !ctrl.Ready() {
			return "gemini"
		}
		return "gemini/" + ctrl.ModelID()
	}

	var model tea.Model = newAppModel(context.Background(), opts)
	model.Init()
	if got := model.(AppModel).status; got != "gemini" {
		t.Fatalf("initial status = %q", got)
	}

	for _, r := range "AIza-secret" {
		model, _ = model.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	model, cmd := model.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected connect command")
	}
	model, cmd = model.Update(cmd())
	if cmd == nil {
		t.Fatal("expected replace command")
	}
	model, _ = model.Update(cmd())

	m := model.(AppModel)
	if _, ok := m.router.Active().(*home.HomeScreen); !ok {
		t.Fatalf("expected home screen, got %T", m.router.Active())
	}
	if m.status != "gemini/mock" {
		t.Errorf("status after connect = %q", m.status)
	}
}

func TestEscBlockedWhileBusy(t *testing.T) {
	m := newAppModel(context.Background(), options(llm.NewCredential("k")))
	work := &busyScreen{busy: true}
	m.router.Push(work)

	_, cmd := m.Update(esc)
	if cmd != nil {
		t.Fatal("esc must be ignored while the screen is busy")
	}
	if m.router.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", m.router.Depth())
	}

	work.busy = false
	_, cmd = m.Update(esc)
	if cmd == nil {
		t.Fatal("expected a pop once idle")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Errorf("expected PopScreenMsg, got %T", cmd())
	}
}

func TestEscAtRootDoesNothing(t *testing.T) {
	m := newAppModel(context.Background(), options(llm.NewCredential("k")))
	if _, cmd := m.Update(esc); cmd != nil {
		t.Error("esc at the root screen should be a no-op")
	}
}

func TestTooSmallTerminal(t *testing.T) {
	m := newAppModel(context.Background(), options(llm.NewCredential("k")))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	v := updated.(AppModel).View()
	if v.Content == nil {
		t.Fatal("expected content")
	}
}
