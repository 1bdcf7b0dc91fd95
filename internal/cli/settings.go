package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/codecritic/internal/model"
)

// EnvPrefix namespaces environment overrides, e.g. CODECRITIC_LLM_PRIMARY_MODEL
const EnvPrefix = "CODECRITIC"

type configKey struct{}

func withConfig(ctx context.Context, cfg *model.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFrom returns the configuration loaded by the root command
func configFrom(ctx context.Context) *model.Config {
	if cfg, ok := ctx.Value(configKey{}).(*model.Config); ok {
		return cfg
	}
	return model.DefaultConfig()
}

// loadConfig layers defaults, the config file, CODECRITIC_* env vars and
// bound flags into a Config.
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := registerDefaults(v, cfg); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// registerDefaults makes every config key known to viper so env vars can
// override keys the config file does not mention.
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	for key, value := range flatten("", tree) {
		v.SetDefault(key, value)
	}
	// Never serialized, still overridable
	v.SetDefault("llm.api_key", "")
	return nil
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = val
	}
	return out
}

func validateConfig(cfg *model.Config) error {
	var errs []error
	if cfg.LLM.PrimaryModel == "" {
		errs = append(errs, errors.New("llm.primary_model is required"))
	}
	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if cfg.Concurrency.Workers < 1 {
		errs = append(errs, errors.New("concurrency.workers must be at least 1"))
	}
	if cfg.LLM.MaxOutputTokens < 0 {
		errs = append(errs, errors.New("llm.max_output_tokens must not be negative"))
	}
	return errors.Join(errs...)
}
