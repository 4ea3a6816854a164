package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fundprep/examgen/internal/llm"
)

// Config is the complete runtime configuration.
type Config struct {
	LLM     llm.Config
	Catalog CatalogConfig
	History HistoryConfig
	Log     LogConfig
	Server  ServerConfig

	// File is the config file that was read, or "" when none was found.
	File string
}

type CatalogConfig struct {
	File    string
	Variant string
}

// HistoryConfig controls the opt-in request ledger.
type HistoryConfig struct {
	Enabled bool
	DB      string
}

type LogConfig struct {
	Level  string
	Format string // console or json
	File   string

	// LevelSet reports that Level came from the config file, the
	// environment or a flag rather than the default.
	LevelSet bool
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Redis        RedisConfig
	LockTTL      time.Duration
}

// RedisConfig enables the shared session guard when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// keyEnv lists the conventional variables accepted for each API key, after
// the EXAMGEN_ one.
var keyEnv = map[string][]string{
	"llm.gemini.api_key":     {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"llm.openai.api_key":     {"OPENAI_API_KEY"},
	"llm.anthropic.api_key":  {"ANTHROPIC_API_KEY"},
	"llm.openrouter.api_key": {"OPENROUTER_API_KEY"},
}

// Load reads configuration from path (or examgen.yaml in the working
// directory or $XDG_CONFIG_HOME/examgen), then applies EXAMGEN_* and the
// well-known API key variables. A missing default file is not an error;
// a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EXAMGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range keyEnv {
		envs := append([]string{"EXAMGEN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("examgen")
		v.AddConfigPath(".")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		LLM: llm.Config{
			Provider: strings.ToLower(v.GetString("llm.provider")),
			Gemini: llm.GeminiConfig{
				APIKey:  v.GetString("llm.gemini.api_key"),
				Model:   v.GetString("llm.gemini.model"),
				BaseURL: v.GetString("llm.gemini.base_url"),
			},
			OpenAI: llm.OpenAIConfig{
				APIKey:  v.GetString("llm.openai.api_key"),
				Model:   v.GetString("llm.openai.model"),
				BaseURL: v.GetString("llm.openai.base_url"),
			},
			Anthropic: llm.AnthropicConfig{
				APIKey:  v.GetString("llm.anthropic.api_key"),
				Model:   v.GetString("llm.anthropic.model"),
				BaseURL: v.GetString("llm.anthropic.base_url"),
			},
			OpenRouter: llm.OpenRouterConfig{
				APIKey:  v.GetString("llm.openrouter.api_key"),
				Model:   v.GetString("llm.openrouter.model"),
				BaseURL: v.GetString("llm.openrouter.base_url"),
			},
			Ollama: llm.OllamaConfig{
				ServerURL: v.GetString("llm.ollama.server_url"),
				Model:     v.GetString("llm.ollama.model"),
			},
			Retry: llm.RetryConfig{
				MaxAttempts: v.GetInt("llm.retry.max_attempts"),
				InitialWait: v.GetDuration("llm.retry.initial_wait"),
				MaxWait:     v.GetDuration("llm.retry.max_wait"),
				Multiplier:  v.GetFloat64("llm.retry.multiplier"),
			},
			Timeout:     v.GetDuration("llm.timeout"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Temperature: v.GetFloat64("llm.temperature"),
		},
		Catalog: CatalogConfig{
			File:    v.GetString("catalog.file"),
			Variant: v.GetString("catalog.variant"),
		},
		History: HistoryConfig{
			Enabled: v.GetBool("history.enabled"),
			DB:      v.GetString("history.db"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
			File:   v.GetString("log.file"),

			LevelSet: v.InConfig("log.level") || os.Getenv("EXAMGEN_LOG_LEVEL") != "",
		},
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			Redis: RedisConfig{
				Addr:     v.GetString("server.redis.addr"),
				Password: v.GetString("server.redis.password"),
				DB:       v.GetInt("server.redis.db"),
			},
			LockTTL: v.GetDuration("server.lock_ttl"),
		},
		File: v.ConfigFileUsed(),
	}
	cfg.LLM = cfg.LLM.Discover()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := llm.DefaultConfig()
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.gemini.model", d.Gemini.Model)
	v.SetDefault("llm.gemini.base_url", "")
	v.SetDefault("llm.openai.model", d.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.anthropic.model", d.Anthropic.Model)
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.openrouter.model", d.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")
	v.SetDefault("llm.ollama.server_url", d.Ollama.ServerURL)
	v.SetDefault("llm.ollama.model", d.Ollama.Model)
	v.SetDefault("llm.retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", d.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", d.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", d.Retry.Multiplier)
	v.SetDefault("llm.timeout", d.Timeout)
	v.SetDefault("llm.max_tokens", d.MaxTokens)
	v.SetDefault("llm.temperature", d.Temperature)

	v.SetDefault("catalog.file", "")
	v.SetDefault("catalog.variant", "")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.db", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.redis.addr", "")
	v.SetDefault("server.redis.password", "")
	v.SetDefault("server.redis.db", 0)
	v.SetDefault("server.lock_ttl", d.Timeout+30*time.Second)
}

// Validate checks the configuration for values that can never work.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("invalid llm config: %w", err)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Server.Redis.Addr != "" && c.Server.LockTTL < c.LLM.Timeout {
		return fmt.Errorf("server.lock_ttl (%s) must not be shorter than llm.timeout (%s)", c.Server.LockTTL, c.LLM.Timeout)
	}
	return nil
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "examgen")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "examgen")
}
