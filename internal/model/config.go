package model

import "time"

// Config is the complete application configuration
type Config struct {
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Grading     GradingConfig     `yaml:"grading" mapstructure:"grading"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// LLMConfig selects and configures the chat-completion backend
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai anthropic claude ollama endpoint"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`

	// Client-side throttle, requests per second per provider
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig selects the analysis cache backend
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend  string        `yaml:"backend" mapstructure:"backend" validate:"oneof=memory disk layered sqlite redis none"`
	Dir      string        `yaml:"dir" mapstructure:"dir"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"` // 0 keeps entries forever
	RedisURL string        `yaml:"redis_url,omitempty" mapstructure:"redis_url"`
}

// GradingConfig tunes the grading calls
type GradingConfig struct {
	MinLatency          time.Duration `yaml:"min_latency" mapstructure:"min_latency"`
	GradingTemperature  float32       `yaml:"grading_temperature" mapstructure:"grading_temperature" validate:"gte=0,lte=2"`
	RewriteTemperature  float32       `yaml:"rewrite_temperature" mapstructure:"rewrite_temperature" validate:"gte=0,lte=2"`
	QuotaCooldown       time.Duration `yaml:"quota_cooldown" mapstructure:"quota_cooldown"`
	MinEvidenceLength   int           `yaml:"min_evidence_length" mapstructure:"min_evidence_length" validate:"gte=1"`
	DefaultWorkType     WorkType      `yaml:"default_work_type" mapstructure:"default_work_type"`
	DefaultStrict       bool          `yaml:"default_strict" mapstructure:"default_strict"`
	MaxSubmissionBytes  int           `yaml:"max_submission_bytes" mapstructure:"max_submission_bytes" validate:"gte=0"`
	MaxFileBytes        int           `yaml:"max_file_bytes" mapstructure:"max_file_bytes" validate:"gte=0"`
	RubricQualityChecks bool          `yaml:"rubric_quality_checks" mapstructure:"rubric_quality_checks"`
	RespectRobots       bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// ServerConfig configures "serve"
type ServerConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	DraftDir string `yaml:"draft_dir" mapstructure:"draft_dir"`
	Metrics  bool   `yaml:"metrics" mapstructure:"metrics"`

	// DraftMaxBytes caps the stored draft; larger drafts are saved without files
	DraftMaxBytes int `yaml:"draft_max_bytes" mapstructure:"draft_max_bytes" validate:"gte=0"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format" validate:"oneof=text markdown json html table"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Color   bool   `yaml:"color" mapstructure:"color"`
}

// ConcurrencyConfig bounds batch grading
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   120,
			MaxTokens: 4096,
			RateLimit: 1,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "sqlite",
			Dir:     "~/.rubriccheck/cache",
		},
		Grading: GradingConfig{
			MinLatency:          5 * time.Second,
			GradingTemperature:  0.1,
			RewriteTemperature:  0.7,
			QuotaCooldown:       60 * time.Second,
			MinEvidenceLength:   5,
			DefaultWorkType:     WorkGeneral,
			MaxSubmissionBytes:  200_000,
			MaxFileBytes:        10_000_000,
			RubricQualityChecks: true,
			RespectRobots:       true,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			DraftDir:      "~/.rubriccheck/drafts",
			Metrics:       true,
			DraftMaxBytes: 5_000_000,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 2,
		},
	}
}
