package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaProvider implements Provider against a local Ollama server through
// langchaingo. It needs no credential.
type OllamaProvider struct {
	llm   *ollama.LLM
	model string
}

// NewOllamaProvider creates a provider for the given server. A nil client
// uses http.DefaultClient.
func NewOllamaProvider(cfg OllamaConfig, client *http.Client) (*OllamaProvider, error) {
	if client == nil {
		client = http.DefaultClient
	}
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(client),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &OllamaProvider{llm: llm, model: cfg.Model}, nil
}

func (p *OllamaProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := p.llm.GenerateContent(ctx, ollamaMessages(req), ollamaOptions(req)...)
	if err != nil {
		return nil, Classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ErrRemote{Err: fmt.Errorf("no choices in response from %s", p.model)}
	}
	choice := resp.Choices[0]
	return &Response{
		Text:       choice.Content,
		Usage:      ollamaUsage(choice.GenerationInfo),
		Model:      p.model,
		StopReason: "end",
	}, nil
}

func (p *OllamaProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		opts := append(ollamaOptions(req), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			if !sendChunk(ctx, ch, Chunk{Text: string(chunk)}) {
				return ctx.Err()
			}
			return nil
		}))
		resp, err := p.llm.GenerateContent(ctx, ollamaMessages(req), opts...)
		if err != nil {
			sendChunk(ctx, ch, Chunk{Err: Classify(err)})
			return
		}
		if len(resp.Choices) > 0 {
			usage := ollamaUsage(resp.Choices[0].GenerationInfo)
			sendChunk(ctx, ch, Chunk{Usage: &usage})
		}
	}()
	return ch, nil
}

func (p *OllamaProvider) ModelID() string {
	return p.model
}

func ollamaMessages(req Request) []llms.MessageContent {
	var msgs []llms.MessageContent
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, m := range req.Messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	return msgs
}

func ollamaOptions(req Request) []llms.CallOption {
	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	return opts
}

func ollamaUsage(info map[string]any) Usage {
	in, _ := info["PromptTokens"].(int)
	out, _ := info["CompletionTokens"].(int)
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}
