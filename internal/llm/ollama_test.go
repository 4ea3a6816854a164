package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestOllamaProvider(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewOllamaProvider(OllamaConfig{ServerURL: server.URL, Model: "qwen2.5:7b"}, server.Client())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func TestOllamaProvider_Generate(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["stream"] == true {
			t.Errorf("expected non-streaming request")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"qwen2.5:7b","message":{"role":"assistant","content":"### Q1"},"done":true,"prompt_eval_count":20,"eval_count":8}`+"\n")
	}

	p := newTestOllamaProvider(t, handler)
	resp, err := p.Generate(context.Background(), NewRequest("rules", "write", 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "### Q1" {
		t.Fatalf("text = %q", resp.Text)
	}
	if resp.Usage.InputTokens != 20 || resp.Usage.OutputTokens != 8 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
}

func TestOllamaProvider_Stream(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, frag := range []string{"A", "B", "C"} {
			fmt.Fprintf(w, `{"model":"qwen2.5:7b","message":{"role":"assistant","content":%q},"done":false}`+"\n", frag)
		}
		fmt.Fprint(w, `{"model":"qwen2.5:7b","message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":5,"eval_count":3}`+"\n")
	}

	p := newTestOllamaProvider(t, handler)
	ch, err := p.Stream(context.Background(), NewRequest("", "go", 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	frags, usage, err := collect(t, ch)
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if strings.Join(frags, ",") != "A,B,C" {
		t.Fatalf("fragments = %v", frags)
	}
	if usage == nil || usage.TotalTokens != 8 {
		t.Fatalf("usage = %+v", usage)
	}
}

func TestOllamaProvider_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p, err := NewOllamaProvider(OllamaConfig{ServerURL: url, Model: "m"}, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = p.Generate(context.Background(), NewRequest("", "x", 0, 0))
	if KindOf(err) != KindNetworkFailure {
		t.Fatalf("expected network failure, got %s (%v)", KindOf(err), err)
	}
}
