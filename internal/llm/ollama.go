package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ppiankov/codecritic/internal/model"
)

// OllamaGateway calls a local Ollama server
type OllamaGateway struct {
	baseURL    string
	httpClient *http.Client
}

// Ollama API structures
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`

	// Token counts (only present when done=true)
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaGateway creates a new Ollama gateway
func NewOllamaGateway(config Config) (*OllamaGateway, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaGateway{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(config),
	}, nil
}

// Name returns the provider name
func (p *OllamaGateway) Name() string {
	return "ollama"
}

// Call sends one non-streaming generate request
func (p *OllamaGateway) Call(ctx context.Context, req CallRequest) Outcome {
	if req.Model == "" {
		return Outcome{Kind: KindBadRequest, Detail: "ollama model must be specified (e.g., llama3.1:8b, qwen2.5-coder)"}
	}

	apiReq := ollamaRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: false, // Get complete response at once
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxOutputTokens,
		},
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return Outcome{Kind: KindBadRequest, Detail: fmt.Sprintf("marshal request: %v", err)}
	}

	url := fmt.Sprintf("%s/api/generate", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Outcome{Kind: KindBadRequest, Detail: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return FromTransportError(fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return FromTransportError(fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return FromStatus(httpResp.StatusCode, apiErr.Error)
		}
		return FromStatus(httpResp.StatusCode, truncateDetail(respBody))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Outcome{Kind: KindNetworkError, Detail: fmt.Sprintf("unmarshal response: %v", err)}
	}

	modelName := resp.Model
	if modelName == "" {
		modelName = req.Model
	}

	return Success(resp.Response, model.Usage{
		PromptTokens: resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
		TotalTokens:  resp.PromptEvalCount + resp.EvalCount,
	}, modelName)
}
