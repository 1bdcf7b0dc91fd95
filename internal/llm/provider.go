package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/ppiankov/codecritic/internal/util"
)

// Gateway wraps one HTTP call to one model endpoint.
// Call never returns a Go error: every failure is classified into an Outcome.
type Gateway interface {
	// Name returns the provider name
	Name() string

	// Call performs exactly one round trip, bounded by the configured timeout
	Call(ctx context.Context, req CallRequest) Outcome
}

// CallRequest is the input for a single model call
type CallRequest struct {
	// Model is the provider-specific model name
	Model string

	// Prompt is the fully assembled prompt text
	Prompt string

	Temperature     float64
	MaxOutputTokens int
}

// Config holds gateway configuration
type Config struct {
	// Provider name: "gemini", "genai", "openai", "anthropic", "ollama"
	Provider string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (proxies, Ollama, tests)
	BaseURL string

	// Timeout bounds a single attempt
	Timeout time.Duration

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultTimeout bounds one attempt; large responses take minutes
const DefaultTimeout = 5 * time.Minute

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider: "gemini",
		Timeout:  DefaultTimeout,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// newHTTPClient builds the client shared by the REST gateways
func newHTTPClient(cfg Config) *http.Client {
	return &http.Client{
		Timeout: cfg.timeout(),
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
	}
}
