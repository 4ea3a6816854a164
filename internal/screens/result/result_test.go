package result

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/llm"
)

func testParams(t *testing.T) exam.Params {
	t.Helper()
	v, ok := exam.DefaultCatalog().Variant("fund")
	if !ok {
		t.Fatal("fund variant missing from default catalog")
	}
	p, err := exam.NewParams(v, "basics", "", 3, "")
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	return p
}

// drive runs cmd and feeds every resulting message back into the screen
// until no follow-up command is left.
func drive(s *ResultScreen, cmd tea.Cmd) (steps int) {
	for cmd != nil {
		msg := cmd()
		_, cmd = s.Update(msg)
		steps++
	}
	return steps
}

func TestStreamsFragmentsProgressively(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Fragments: []string{"A", "B", "C"},
		Usage:     llm.Usage{TotalTokens: 12},
	})
	ctrl := exam.NewController(mock, llm.NewCredential("k"))
	s := New(context.Background(), ctrl, testParams(t))

	cmd := s.open()
	if !s.Busy() {
		t.Fatal("screen should be busy once the action starts")
	}

	// open, then one message per fragment, then the final update
	_, cmd = s.Update(cmd())
	var seen []string
	for cmd != nil {
		_, cmd = s.Update(cmd())
		seen = append(seen, s.text)
	}

	want := []string{"A", "AB", "ABC", "ABC"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("text progression = %v, want %v", seen, want)
	}
	if s.Busy() {
		t.Error("screen should not be busy after the final update")
	}

	view := s.View(80, 30)
	if !strings.Contains(view, "ABC") {
		t.Errorf("view missing text: %q", view)
	}
	if !strings.Contains(view, "Generated in") || !strings.Contains(view, "12 tokens") {
		t.Errorf("view missing success line: %q", view)
	}
}

func TestErrorAppendedBelowPartialText(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Fragments: []string{"Question 1"},
		StreamErr: &llm.ErrNetworkFailure{Err: errors.New("connection reset by peer")},
	})
	ctrl := exam.NewController(mock, llm.NewCredential("k"))
	s := New(context.Background(), ctrl, testParams(t))

	drive(s, s.open())

	if s.text != "Question 1" {
		t.Errorf("partial text lost: %q", s.text)
	}
	view := s.View(100, 30)
	textAt := strings.Index(view, "Question 1")
	errAt := strings.Index(view, "connection reset by peer")
	if textAt < 0 || errAt < 0 || errAt < textAt {
		t.Errorf("expected error after partial text, got %q", view)
	}
}

func TestMissingCredentialShownWithoutRequest(t *testing.T) {
	mock := llm.NewMockProvider()
	ctrl := exam.NewController(mock, llm.NewCredential(""))
	s := New(context.Background(), ctrl, testParams(t))

	drive(s, s.open())

	if mock.CallCount() != 0 {
		t.Errorf("expected no provider calls, got %d", mock.CallCount())
	}
	if !errors.Is(s.err, llm.ErrMissingCredential) {
		t.Errorf("expected missing credential, got %v", s.err)
	}
	if !strings.Contains(s.View(100, 30), "No API key") {
		t.Error("view should explain the missing key")
	}
}

func TestRegenerateOnlyWhenIdle(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Fragments: []string{"first"}},
		llm.MockResponse{Fragments: []string{"second"}},
	)
	ctrl := exam.NewController(mock, llm.NewCredential("k"))
	s := New(context.Background(), ctrl, testParams(t))

	open := s.open()
	s.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	if mock.CallCount() != 0 {
		t.Fatal("regenerate must be ignored while the action is in flight")
	}
	drive(s, open)
	if s.text != "first" {
		t.Fatalf("expected first body, got %q", s.text)
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	if !s.Busy() {
		t.Fatal("regenerate should start a new action")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("expected a batch, got %T", cmd())
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if msg, ok := c().(streamOpenedMsg); ok {
			drive(s, func() tea.Msg { return msg })
		}
	}
	if s.text != "second" {
		t.Errorf("expected second body, got %q", s.text)
	}
}

func TestHeadingShowsParams(t *testing.T) {
	ctrl := exam.NewController(llm.NewMockProvider(), llm.NewCredential("k"))
	s := New(context.Background(), ctrl, testParams(t))
	h := s.heading()
	if !strings.Contains(h, "Subject Two") || !strings.Contains(h, "3 questions") {
		t.Errorf("unexpected heading %q", h)
	}
}
