package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Credentials are read from the environment, never from the config file
type Credentials struct {
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OllamaBaseURL   string `env:"OLLAMA_BASE_URL"`
}

// LoadCredentials reads provider credentials from the environment
func LoadCredentials(ctx context.Context) (Credentials, error) {
	var creds Credentials
	if err := envconfig.Process(ctx, &creds); err != nil {
		return Credentials{}, fmt.Errorf("process credentials: %w", err)
	}
	return creds, nil
}

// APIKeyFor returns the key for a provider, or "" if none is needed or set
func (c Credentials) APIKeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "gemini", "google", "genai", "vertex", "":
		if c.GeminiAPIKey != "" {
			return c.GeminiAPIKey
		}
		return c.GoogleAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic", "claude":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

// Apply fills in the API key and base URL for cfg's provider where unset
func (c Credentials) Apply(cfg Config) (Config, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = c.APIKeyFor(cfg.Provider)
	}
	provider := strings.ToLower(cfg.Provider)
	if provider == "ollama" && cfg.BaseURL == "" {
		cfg.BaseURL = c.OllamaBaseURL
	}

	switch provider {
	case "gemini", "google", "":
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case "openai":
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	}
	return cfg, nil
}
