package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestOpen_MigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := range 2 {
		s, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestLLMEventRepo_AppendAndList(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	events := []LLMRequestEventData{
		{RequestID: "r1", Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "exam", InputTokens: 100, OutputTokens: 900, LatencyMs: 1200, Success: true, ResponseBody: "### Question 1"},
		{RequestID: "r2", Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "exam", Streamed: true, Success: false, ErrorKind: "quota_exhausted", ErrorMessage: "429"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.List(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].RequestID != "r2" || got[1].RequestID != "r1" {
		t.Fatalf("expected newest first, got %q then %q", got[0].RequestID, got[1].RequestID)
	}
	if !got[0].Streamed || got[0].Success {
		t.Fatalf("flags not round-tripped: %+v", got[0])
	}
	if got[1].ResponseBody != "### Question 1" {
		t.Fatalf("response body = %q", got[1].ResponseBody)
	}
	if !got[1].Timestamp.Equal(base.Add(time.Minute)) {
		t.Fatalf("timestamp = %v", got[1].Timestamp)
	}

	limited, err := repo.List(ctx, QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 event with limit, got %d", len(limited))
	}
}

func TestLLMEventRepo_Get(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{RequestID: "only", Model: "mock", Success: true}); err != nil {
		t.Fatalf("append: %v", err)
	}

	ev, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ev.RequestID != "only" {
		t.Fatalf("request id = %q", ev.RequestID)
	}

	if _, err := repo.Get(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLLMEventRepo_Stats(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	rows := []LLMRequestEventData{
		{Model: "gemini-2.0-flash", InputTokens: 10, OutputTokens: 100, LatencyMs: 100, Success: true},
		{Model: "gemini-2.0-flash", InputTokens: 20, OutputTokens: 200, LatencyMs: 300, Success: false},
		{Model: "gpt-4o-mini", InputTokens: 5, OutputTokens: 50, LatencyMs: 50, Success: true},
	}
	for _, r := range rows {
		if err := repo.AppendLLMRequest(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 models, got %d", len(stats))
	}
	g := stats[0]
	if g.Model != "gemini-2.0-flash" || g.Requests != 2 || g.Failures != 1 {
		t.Fatalf("unexpected gemini stats: %+v", g)
	}
	if g.InputTokens != 30 || g.OutputTokens != 300 {
		t.Fatalf("unexpected token sums: %+v", g)
	}
	if g.AvgLatencyMs != 200 {
		t.Fatalf("avg latency = %v, want 200", g.AvgLatencyMs)
	}
}

func TestDefaultDBPath_EnvOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "nested", "custom.db")
	t.Setenv("EXAMGEN_DB", want)

	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDefaultDBPath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EXAMGEN_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)

	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if want := filepath.Join(dir, "examgen", "history.db"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
