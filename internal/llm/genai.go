package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ppiankov/codecritic/internal/model"
)

// GenAIGateway calls Gemini through the google.golang.org/genai SDK.
// Unlike GeminiGateway it supports Vertex AI when no API key is set.
type GenAIGateway struct {
	client *genai.Client
	config Config
}

// NewGenAIGateway creates a new SDK-backed gateway.
// With an API key it targets the Gemini API, otherwise Vertex AI using
// application default credentials (GOOGLE_CLOUD_PROJECT / GOOGLE_CLOUD_LOCATION).
func NewGenAIGateway(ctx context.Context, config Config) (*GenAIGateway, error) {
	clientConfig := &genai.ClientConfig{
		HTTPClient: newHTTPClient(config),
	}
	if config.APIKey != "" {
		clientConfig.APIKey = config.APIKey
		clientConfig.Backend = genai.BackendGeminiAPI
	} else {
		clientConfig.Backend = genai.BackendVertexAI
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenAIGateway{client: client, config: config}, nil
}

// Name returns the provider name
func (g *GenAIGateway) Name() string {
	return "genai"
}

// Call sends one GenerateContent request
func (g *GenAIGateway) Call(ctx context.Context, req CallRequest) Outcome {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, g.config.timeout())
	defer cancel()

	temperature := float32(req.Temperature)
	genConfig := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxOutputTokens),
	}

	resp, err := g.client.Models.GenerateContent(ctxWithTimeout, req.Model, genai.Text(req.Prompt), genConfig)
	if err != nil {
		return classifyGenAIError(err)
	}

	return Success(genaiText(resp), genaiUsage(resp), req.Model)
}

// genaiText joins the text parts of the first candidate; empty when absent
func genaiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func genaiUsage(resp *genai.GenerateContentResponse) model.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return model.Usage{}
	}
	return model.Usage{
		PromptTokens: int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
	}
}

// classifyGenAIError maps SDK errors onto outcome kinds via the HTTP code
func classifyGenAIError(err error) Outcome {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return FromStatus(apiErr.Code, fmt.Sprintf("%s - %s", apiErr.Status, apiErr.Message))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return FromStatus(apiErrPtr.Code, fmt.Sprintf("%s - %s", apiErrPtr.Status, apiErrPtr.Message))
	}
	return FromTransportError(err)
}
