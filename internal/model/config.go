package model

import "time"

// Config is the full application configuration.
// Field tags serve both viper (mapstructure) and `config show` (yaml).
type Config struct {
	LLM    LLMConfig    `yaml:"llm" mapstructure:"llm"`
	Retry  RetryConfig  `yaml:"retry" mapstructure:"retry"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Corpus CorpusConfig `yaml:"corpus" mapstructure:"corpus"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`

	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// LLMConfig selects providers and models
type LLMConfig struct {
	Provider         string        `yaml:"provider" mapstructure:"provider"`                   // gemini, genai, openai, anthropic, ollama
	PrimaryModel     string        `yaml:"primary_model" mapstructure:"primary_model"`         // Tried first
	FallbackModel    string        `yaml:"fallback_model" mapstructure:"fallback_model"`       // Tried after the primary is exhausted
	FallbackProvider string        `yaml:"fallback_provider" mapstructure:"fallback_provider"` // Empty = same as Provider
	BaseURL          string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey           string        `yaml:"-" mapstructure:"api_key"` // Prefer env vars; never written to disk
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per attempt
	Temperature      float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxOutputTokens  int           `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	AllowEmpty       bool          `yaml:"allow_empty" mapstructure:"allow_empty"` // Accept empty model output as success

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"` // Empty = HTTP_PROXY env var
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RetryConfig holds the dispatch backoff policy.
// These were tuned against one provider's rate limits; treat as policy.
type RetryConfig struct {
	MaxAttempts         int           `yaml:"max_attempts" mapstructure:"max_attempts"` // Per model
	BaseDelay           time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxBackoff          time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	MaxJitter           time.Duration `yaml:"max_jitter" mapstructure:"max_jitter"`
	RateLimitMultiplier int           `yaml:"rate_limit_multiplier" mapstructure:"rate_limit_multiplier"`
	TransientMultiplier int           `yaml:"transient_multiplier" mapstructure:"transient_multiplier"`
	NetworkMultiplier   int           `yaml:"network_multiplier" mapstructure:"network_multiplier"`
	FallbackCooldown    time.Duration `yaml:"fallback_cooldown" mapstructure:"fallback_cooldown"`
	MinSpacing          time.Duration `yaml:"min_spacing" mapstructure:"min_spacing"` // Between any two outbound calls
}

// CacheConfig configures the dispatch response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig configures the persistence sink
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, or empty to disable
	DSN    string `yaml:"dsn" mapstructure:"dsn"`       // File path for sqlite, URL for postgres
}

// CorpusConfig controls which files are loaded from disk
type CorpusConfig struct {
	Extensions   []string `yaml:"extensions" mapstructure:"extensions"`
	ExcludeDirs  []string `yaml:"exclude_dirs" mapstructure:"exclude_dirs"`
	MaxFileBytes int64    `yaml:"max_file_bytes" mapstructure:"max_file_bytes"`
	MaxFiles     int      `yaml:"max_files" mapstructure:"max_files"`
}

// OutputConfig controls logging and report rendering
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text or json
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:        "gemini",
			PrimaryModel:    "gemini-2.5-pro",
			FallbackModel:   "gemini-2.5-flash",
			Timeout:         5 * time.Minute, // Responses can be large
			Temperature:     0.2,
			MaxOutputTokens: 8192,
		},
		Retry: RetryConfig{
			MaxAttempts:         2,
			BaseDelay:           5 * time.Second,
			MaxBackoff:          2 * time.Minute,
			RateLimitMultiplier: 10,
			TransientMultiplier: 1,
			NetworkMultiplier:   3,
			FallbackCooldown:    30 * time.Second,
			MinSpacing:          time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultDir("cache"),
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    defaultDir("codecritic.db"),
		},
		Corpus: CorpusConfig{
			Extensions: []string{
				".go", ".py", ".js", ".ts", ".tsx", ".jsx", ".java", ".kt", ".rb", ".rs",
				".c", ".h", ".cpp", ".hpp", ".cs", ".php", ".swift", ".scala", ".sql", ".sh",
			},
			ExcludeDirs:  []string{".git", "vendor", "node_modules", "dist", "build", "_examples"},
			MaxFileBytes: 200_000,
			MaxFiles:     200,
		},
		Output: OutputConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
