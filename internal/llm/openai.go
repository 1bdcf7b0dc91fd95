package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/codecritic/internal/model"
)

// OpenAIGateway calls the OpenAI Chat Completions API (or any compatible endpoint)
type OpenAIGateway struct {
	client *openai.Client
	config Config
}

// NewOpenAIGateway creates a new OpenAI gateway
func NewOpenAIGateway(config Config) (*OpenAIGateway, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(config)

	return &OpenAIGateway{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIGateway) Name() string {
	return "openai"
}

// Call sends one chat completion request
func (p *OpenAIGateway) Call(ctx context.Context, req CallRequest) Outcome {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: float32(req.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return classifyOpenAIError(err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	modelName := resp.Model
	if modelName == "" {
		modelName = req.Model
	}

	return Success(text, model.Usage{
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, modelName)
}

// classifyOpenAIError maps go-openai errors onto outcome kinds
func classifyOpenAIError(err error) Outcome {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return FromStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return FromStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return FromTransportError(err)
}
