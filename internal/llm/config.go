package llm

import (
	"fmt"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "gemini", "openai", "anthropic", "openrouter", "ollama", "mock".
	// Empty means discover from whichever API key is set.
	Provider string

	Gemini     GeminiConfig
	OpenAI     OpenAIConfig
	Anthropic  AnthropicConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
	Retry      RetryConfig

	// Timeout bounds one generation action end to end, streaming included.
	// Default: 120s.
	Timeout time.Duration

	MaxTokens   int
	Temperature float64
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey  string
	Model   string // Default: "gemini-flash"
	BaseURL string
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for compatible APIs.
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string
	Model   string // Default: "claude-haiku"
	BaseURL string
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.0-flash-001"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// OllamaConfig points at a local Ollama server. No key is needed.
type OllamaConfig struct {
	ServerURL string // Default: "http://localhost:11434"
	Model     string // Default: "qwen2.5:7b"
}

// RetryConfig configures retry behavior for transient failures.
// MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-001",
		},
		Ollama: OllamaConfig{
			ServerURL: "http://localhost:11434",
			Model:     "qwen2.5:7b",
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout:     120 * time.Second,
		MaxTokens:   8192,
		Temperature: 0.7,
	}
}

// Discover fills in Provider when it is empty, picking the first provider
// whose key is set (Gemini → OpenAI → Anthropic → OpenRouter). With no key
// at all it settles on Gemini so the missing key is reported for it.
func (c Config) Discover() Config {
	if c.Provider != "" {
		return c
	}
	switch {
	case c.Gemini.APIKey != "":
		c.Provider = "gemini"
	case c.OpenAI.APIKey != "":
		c.Provider = "openai"
	case c.Anthropic.APIKey != "":
		c.Provider = "anthropic"
	case c.OpenRouter.APIKey != "":
		c.Provider = "openrouter"
	default:
		c.Provider = "gemini"
	}
	return c
}

// Credential returns the key of the selected provider.
func (c Config) Credential() Credential {
	switch c.Provider {
	case "gemini":
		return NewCredential(c.Gemini.APIKey)
	case "openai":
		return NewCredential(c.OpenAI.APIKey)
	case "anthropic":
		return NewCredential(c.Anthropic.APIKey)
	case "openrouter":
		return NewCredential(c.OpenRouter.APIKey)
	case "ollama", "mock":
		return Keyless()
	}
	return Credential{}
}

// WithCredential returns a copy with the selected provider's key replaced.
// Used once, by the interactive fallback prompt.
func (c Config) WithCredential(secret string) Config {
	switch c.Provider {
	case "gemini":
		c.Gemini.APIKey = secret
	case "openai":
		c.OpenAI.APIKey = secret
	case "anthropic":
		c.Anthropic.APIKey = secret
	case "openrouter":
		c.OpenRouter.APIKey = secret
	}
	return c
}

// KeyEnv names the environment variable users are told to set.
func (c Config) KeyEnv() string {
	switch c.Provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	case "ollama", "mock":
		return ""
	}
	return "GOOGLE_API_KEY"
}

// Validate checks the static parts of the configuration. A missing key is
// not a validation error; it surfaces as ErrMissingCredential when a
// generation is attempted.
func (c Config) Validate() error {
	switch c.Provider {
	case "gemini", "openai", "anthropic", "openrouter", "ollama", "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got %s", c.Timeout)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", c.Temperature)
	}
	return nil
}
