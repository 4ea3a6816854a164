package form

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/llm"
	"github.com/fundprep/examgen/internal/router"
	"github.com/fundprep/examgen/internal/screens/result"
)

func press(f *FormScreen, keys ...tea.KeyPressMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = f.Update(k)
	}
	return cmd
}

var (
	tab   = tea.KeyPressMsg{Code: tea.KeyTab}
	enter = tea.KeyPressMsg{Code: tea.KeyEnter}
	down  = tea.KeyPressMsg{Code: tea.KeyDown}
	right = tea.KeyPressMsg{Code: tea.KeyRight}
)

func typeText(f *FormScreen, s string) {
	for _, r := range s {
		f.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func variant(t *testing.T, id string) exam.Variant {
	t.Helper()
	v, ok := exam.DefaultCatalog().Variant(id)
	if !ok {
		t.Fatalf("variant %q missing", id)
	}
	return v
}

func readyController() *exam.Controller {
	return exam.NewController(llm.NewMockProvider(), llm.NewCredential("k"))
}

func TestDefaultsResolve(t *testing.T) {
	f := New(context.Background(), readyController(), variant(t, "fund"))

	p, err := f.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if !strings.Contains(p.Subject, "Subject One") {
		t.Errorf("expected first subject, got %q", p.Subject)
	}
	if p.QuestionCount != 3 {
		t.Errorf("expected default count 3, got %d", p.QuestionCount)
	}
	if p.FocusTopic != "" {
		t.Errorf("expected blank focus, got %q", p.FocusTopic)
	}
}

func TestSecondSubjectAndCount(t *testing.T) {
	f := New(context.Background(), readyController(), variant(t, "fund"))

	press(f, down, tab) // Subject Two, then count
	for i := 0; i < 20; i++ {
		press(f, right)
	}

	p, err := f.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if !strings.Contains(p.Subject, "Subject Two") {
		t.Errorf("expected Subject Two, got %q", p.Subject)
	}
	if p.QuestionCount != 10 {
		t.Errorf("count should stop at the variant maximum, got %d", p.QuestionCount)
	}
}

func TestCustomSubjectRequiresText(t *testing.T) {
	f := New(context.Background(), readyController(), variant(t, "fund"))

	press(f, down, down, down) // custom entry
	if !f.customSelected() {
		t.Fatal("expected custom entry selected")
	}

	// subject -> custom -> count -> focus -> generate
	cmd := press(f, tab, tab, tab, tab, enter)
	if cmd != nil {
		t.Error("blank custom subject must not start generation")
	}
	if !strings.Contains(f.errMsg, "custom subject") {
		t.Errorf("unexpected error message %q", f.errMsg)
	}

	press(f, tab, tab) // wrap around to subject, then custom input
	if f.active != fieldCustom {
		t.Fatalf("expected custom input focused, got %d", f.active)
	}
	typeText(f, "Futures Law")

	p, err := f.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if p.Subject != "Futures Law" {
		t.Errorf("expected custom subject, got %q", p.Subject)
	}
}

func TestCustomOnlyVariantStartsOnInput(t *testing.T) {
	f := New(context.Background(), readyController(), variant(t, "custom"))
	if f.active != fieldCustom {
		t.Errorf("expected custom input focused first, got %d", f.active)
	}
	if len(f.fields()) != 4 {
		t.Errorf("expected custom, count, focus and generate fields, got %v", f.fields())
	}
}

func TestGeneratePushesResult(t *testing.T) {
	f := New(context.Background(), readyController(), variant(t, "fund"))

	cmd := press(f, tab, tab, tab, enter) // subject -> count -> focus -> generate
	if cmd == nil {
		t.Fatal("expected a navigation command")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatalf("expected PushScreenMsg, got %T", cmd())
	}
	if _, ok := push.Screen.(*result.ResultScreen); !ok {
		t.Errorf("expected result screen, got %T", push.Screen)
	}
}

func TestMissingCredentialBlocksSubmit(t *testing.T) {
	mock := llm.NewMockProvider()
	ctrl := exam.NewController(mock, llm.NewCredential(""))
	f := New(context.Background(), ctrl, variant(t, "fund"))

	cmd := press(f, tab, tab, tab, enter)
	if cmd != nil {
		t.Error("submit without a key must not navigate")
	}
	if !strings.Contains(f.errMsg, "No API key") {
		t.Errorf("unexpected error message %q", f.errMsg)
	}
	if mock.CallCount() != 0 {
		t.Errorf("expected no provider calls, got %d", mock.CallCount())
	}
}

func TestViewListsSubjects(t *testing.T) {
	f := New(context.Background(), readyController(), variant(t, "fund"))
	view := f.View(120, 40)
	for _, want := range []string{"Subject One", "Subject Two", "Subject Three", "Custom subject"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
