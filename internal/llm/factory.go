package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "endpoint":
		return NewEndpointProvider(config)

	case "":
		return nil, fmt.Errorf("no LLM provider configured (set llm.provider or --provider)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama, endpoint)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config, filling the API
// key and base URL from the provider's usual environment variables when
// the configuration leaves them empty
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	cfg := Config{
		Provider:   modelConfig.Provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		Timeout:    modelConfig.Timeout,
		MaxTokens:  modelConfig.MaxTokens,
		HTTPProxy:  modelConfig.HTTPProxy,
		HTTPSProxy: modelConfig.HTTPSProxy,
		NoProxy:    modelConfig.NoProxy,
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		cfg.APIKey = pick(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		cfg.BaseURL = pick(cfg.BaseURL, os.Getenv("OPENAI_BASE_URL"))
	case "anthropic", "claude":
		cfg.APIKey = pick(cfg.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
	case "ollama":
		cfg.BaseURL = pick(cfg.BaseURL, os.Getenv("OLLAMA_BASE_URL"))
	case "endpoint":
		cfg.BaseURL = pick(cfg.BaseURL, os.Getenv("RUBRICCHECK_ENDPOINT_URL"))
	}

	return cfg
}
