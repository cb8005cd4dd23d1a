package llm

import (
	"fmt"
	"os"
)

// Config selects and configures a provider.
type Config struct {
	// Provider is "openai", "anthropic" or "ollama".
	Provider string
	Model    string
	// APIKey overrides the provider's environment variable.
	APIKey string
	// BaseURL points the provider at a compatible endpoint, e.g. a local
	// Ollama host or an OpenAI-compatible gateway.
	BaseURL string
	// RequestsPerMinute wraps the provider in a rate limiter when positive.
	RequestsPerMinute int
}

var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// New builds the provider described by cfg.
func New(cfg Config) (Provider, error) {
	key := cfg.APIKey
	if env, ok := apiKeyEnv[cfg.Provider]; ok && key == "" {
		key = os.Getenv(env)
		if key == "" {
			return nil, fmt.Errorf("%s environment variable is not set", env)
		}
	}

	var p Provider
	switch cfg.Provider {
	case "openai":
		p = NewOpenAIProvider(key, cfg.Model, cfg.BaseURL)
	case "anthropic":
		p = NewAnthropicProvider(key, cfg.Model, cfg.BaseURL)
	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		p = NewOllamaProvider(host, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}

	if cfg.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, cfg.RequestsPerMinute)
	}
	return p, nil
}
