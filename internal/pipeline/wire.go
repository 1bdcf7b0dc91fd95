package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/codecritic/internal/cache"
	"github.com/ppiankov/codecritic/internal/dispatch"
	"github.com/ppiankov/codecritic/internal/llm"
	"github.com/ppiankov/codecritic/internal/metrics"
	"github.com/ppiankov/codecritic/internal/model"
	"github.com/ppiankov/codecritic/internal/retry"
	"github.com/ppiankov/codecritic/internal/store"
)

// Engine is a pipeline plus the resources it owns
type Engine struct {
	*Pipeline
	Sink store.Sink
}

// Close releases the persistence sink
func (e *Engine) Close() error {
	if e.Sink == nil {
		return nil
	}
	return e.Sink.Close()
}

// Build wires gateways, dispatcher, cache and sink from configuration.
// gate is shared by every engine in the process; recorder may be nil.
func Build(ctx context.Context, cfg *model.Config, gate *dispatch.Gate, recorder *metrics.Recorder) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	creds, err := llm.LoadCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	primary, err := newTarget(ctx, creds, cfg.LLM, cfg.LLM.Provider, cfg.LLM.PrimaryModel)
	if err != nil {
		return nil, fmt.Errorf("primary model: %w", err)
	}

	var fallback dispatch.Target
	if cfg.LLM.FallbackModel != "" {
		provider := cfg.LLM.FallbackProvider
		if provider == "" {
			provider = cfg.LLM.Provider
		}
		fallback, err = newTarget(ctx, creds, cfg.LLM, provider, cfg.LLM.FallbackModel)
		if err != nil {
			return nil, fmt.Errorf("fallback model: %w", err)
		}
	}

	policy := retry.FromConfig(cfg.Retry)

	opts := []dispatch.Option{
		dispatch.WithMetrics(recorder),
		dispatch.WithAllowEmpty(cfg.LLM.AllowEmpty),
	}
	if rc := cache.FromConfig(cfg.Cache); rc != nil {
		opts = append(opts, dispatch.WithCache(rc))
	}

	dispatcher, err := dispatch.New(gate, primary, fallback, policy, opts...)
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	sink, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Engine{
		Pipeline: New(dispatcher, sink),
		Sink:     sink,
	}, nil
}

func newTarget(ctx context.Context, creds llm.Credentials, cfg model.LLMConfig, provider, modelName string) (dispatch.Target, error) {
	if modelName == "" {
		return dispatch.Target{}, errors.New("model name is required")
	}

	gwCfg := llm.DefaultConfig()
	gwCfg.Provider = provider
	gwCfg.Timeout = cfg.Timeout
	gwCfg.HTTPProxy = cfg.HTTPProxy
	gwCfg.HTTPSProxy = cfg.HTTPSProxy
	gwCfg.NoProxy = cfg.NoProxy
	// Explicit key and base URL only apply to the configured primary provider
	if strings.EqualFold(provider, cfg.Provider) {
		gwCfg.APIKey = cfg.APIKey
		gwCfg.BaseURL = cfg.BaseURL
	}

	gwCfg, err := creds.Apply(gwCfg)
	if err != nil {
		return dispatch.Target{}, err
	}

	gw, err := llm.NewGateway(ctx, gwCfg)
	if err != nil {
		return dispatch.Target{}, fmt.Errorf("create %s gateway: %w", provider, err)
	}
	return dispatch.Target{Model: modelName, Gateway: gw}, nil
}
