package llm

import (
	"context"
)

// Provider is the core abstraction for LLM interaction.
// One call to Generate or Stream is one outbound request.
type Provider interface {
	// Generate sends a prompt to the LLM and returns the complete text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Stream sends a prompt and delivers the reply as ordered text chunks.
	// The channel is closed after the last chunk. A chunk with Err set is
	// always the final one. Setup failures are returned directly and no
	// channel is created.
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the LLM's role and output rules.
	System string

	// Messages is the conversation history. Exam generation always sends
	// exactly one user message.
	Messages []Message

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	// Zero leaves the provider default in place.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response holds the LLM's output.
type Response struct {
	// Text is the generated Markdown, unparsed.
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens", "error"
	StopReason string
}

// Chunk is one piece of a streamed reply.
type Chunk struct {
	// Text is the fragment, in arrival order. May be empty on the chunk
	// that only carries Usage.
	Text string

	// Usage is set at most once, on or near the last chunk, when the
	// provider reports it.
	Usage *Usage

	// Err terminates the stream.
	Err error
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// userRequest is the single-turn shape every caller in this module sends.
func userRequest(system, prompt string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}

// NewRequest builds a single-turn request with the given limits.
func NewRequest(system, prompt string, maxTokens int, temperature float64) Request {
	req := userRequest(system, prompt)
	req.MaxTokens = maxTokens
	req.Temperature = temperature
	return req
}

// sendChunk delivers c unless ctx is done. It reports whether the consumer
// is still listening.
func sendChunk(ctx context.Context, ch chan<- Chunk, c Chunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
