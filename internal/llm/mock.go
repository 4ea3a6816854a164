package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	// Fragments is what Stream delivers, in order. Generate returns them
	// concatenated.
	Fragments []string
	Usage     Usage

	// Err fails the call before anything is delivered.
	Err error

	// StreamErr fails a Stream call after all Fragments were delivered.
	StreamErr error
}

// Text returns the canned body as Generate would.
func (r MockResponse) Text() string {
	return strings.Join(r.Fragments, "")
}

// errMockExhausted is returned when no canned response is left.
var errMockExhausted = errors.New("mock provider: no canned response left")

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order and records all requests.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) next(req Request) (MockResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return MockResponse{}, &ErrRemote{Err: errMockExhausted}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, resp.Err
}

// Generate returns the next canned response.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}
	return &Response{
		Text:       resp.Text(),
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// Stream delivers the next canned response fragment by fragment.
func (m *MockProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		for _, f := range resp.Fragments {
			if !sendChunk(ctx, ch, Chunk{Text: f}) {
				return
			}
		}
		if resp.StreamErr != nil {
			sendChunk(ctx, ch, Chunk{Err: resp.StreamErr})
			return
		}
		usage := resp.Usage
		sendChunk(ctx, ch, Chunk{Usage: &usage})
	}()
	return ch, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate and Stream calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
