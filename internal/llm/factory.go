package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fundprep/examgen/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped with retry
// and logging middleware. A missing key yields ErrMissingCredential and no
// client is built. eventRepo may be nil.
func NewProvider(ctx context.Context, cfg Config, log *zap.Logger, eventRepo store.EventRepo) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "ollama":
		base, err = NewOllamaProvider(cfg.Ollama, nil)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err == ErrMissingCredential {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Wrap with middleware: caller → retry → logging → base
	logged := WithLogging(base, cfg.Provider, log, eventRepo)
	return WithRetry(logged, cfg.Retry), nil
}
