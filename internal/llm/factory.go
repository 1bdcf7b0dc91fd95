package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewGateway creates a gateway based on configuration
func NewGateway(ctx context.Context, config Config) (Gateway, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "gemini", "google", "":
		return NewGeminiGateway(config)

	case "genai", "vertex":
		return NewGenAIGateway(ctx, config)

	case "openai":
		return NewOpenAIGateway(config)

	case "anthropic", "claude":
		return NewAnthropicGateway(config)

	case "ollama":
		return NewOllamaGateway(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: gemini, genai, openai, anthropic, ollama)", config.Provider)
	}
}
