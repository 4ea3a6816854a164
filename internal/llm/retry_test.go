package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestRetry_DisabledByDefault(t *testing.T) {
	mock := NewMockProvider()
	if p := WithRetry(mock, DefaultConfig().Retry); p != Provider(mock) {
		t.Fatalf("expected provider unchanged, got %T", p)
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := NewMockProvider(MockResponse{Fragments: []string{"ok"}})
	p := WithRetry(mock, retryConfig())

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected text: %s", resp.Text)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrNetworkFailure{Err: errors.New("connection reset")}},
		MockResponse{Fragments: []string{"ok"}},
	)
	p := WithRetry(mock, retryConfig())

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected text: %s", resp.Text)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRemote{Err: errors.New("down")}},
		MockResponse{Err: &ErrRemote{Err: errors.New("down")}},
		MockResponse{Err: &ErrRemote{Err: errors.New("down")}},
	)
	p := WithRetry(mock, retryConfig())

	_, err := p.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetry_CredentialErrorsNotRetried(t *testing.T) {
	for _, e := range []error{ErrMissingCredential, &ErrInvalidCredential{Err: errors.New("401")}} {
		mock := NewMockProvider(MockResponse{Err: e}, MockResponse{Fragments: []string{"unreached"}})
		p := WithRetry(mock, retryConfig())

		if _, err := p.Generate(context.Background(), Request{}); !errors.Is(err, e) {
			t.Fatalf("expected %v, got %v", e, err)
		}
		if mock.CallCount() != 1 {
			t.Fatalf("expected 1 call (no retry), got %d", mock.CallCount())
		}
	}
}

func TestRetry_TimeoutNotRetried(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrNetworkFailure{Timeout: true, Err: context.DeadlineExceeded}},
		MockResponse{Fragments: []string{"unreached"}},
	)
	p := WithRetry(mock, retryConfig())

	if _, err := p.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRemote{Err: errors.New("down")}},
		MockResponse{Fragments: []string{"ok"}},
	)
	p := WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetry_QuotaRespectsRetryAfter(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrQuotaExhausted{RetryAfter: 1 * time.Millisecond, Err: errors.New("429")}},
		MockResponse{Fragments: []string{"ok"}},
	)
	p := WithRetry(mock, retryConfig())

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected text: %s", resp.Text)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_StreamIsNeverRetried(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRemote{Err: errors.New("down")}},
		MockResponse{Fragments: []string{"unreached"}},
	)
	p := WithRetry(mock, retryConfig())

	if _, err := p.Stream(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetry_ModelIDDelegates(t *testing.T) {
	mock := NewMockProvider()
	p := WithRetry(mock, retryConfig())
	if p.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", p.ModelID())
	}
}
