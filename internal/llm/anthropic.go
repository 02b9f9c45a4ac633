package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider implements the Provider interface for Anthropic Claude models
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *httpDoer
	config  Config
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature *float32           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	return &AnthropicProvider{
		apiKey:  config.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &httpDoer{client: newHTTPClient(config, 120*time.Second), provider: "anthropic"},
		config:  config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable checks if the provider is properly configured
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	err := getOK(ctx, p.client.client, p.baseURL+"/v1/models", p.headers())
	if err != nil {
		p.config.Logger.Warn().Err(err).Str("provider", p.Name()).Msg("availability check failed")
		return false
	}
	return true
}

// Complete runs a Messages API call. System messages are joined into the
// dedicated system field.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	system, rest := splitSystem(req.Messages)

	messages := make([]anthropicMessage, len(rest))
	for i, m := range rest {
		messages[i] = anthropicMessage{Role: string(m.Role), Content: m.Content}
	}

	temperature := req.Temperature
	apiReq := anthropicRequest{
		Model:       pick(req.Model, p.config.Model, "claude-3-5-sonnet-20241022"),
		MaxTokens:   pickInt(req.MaxTokens, p.config.MaxTokens, 4096),
		System:      system,
		Messages:    messages,
		Temperature: &temperature,
	}

	var resp anthropicResponse
	if err := p.client.post(ctx, p.baseURL+"/v1/messages", p.headers(), apiReq, &resp, describeAnthropicError); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	return &CompletionResponse{
		Content:    strings.TrimSpace(text.String()),
		Model:      resp.Model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func (p *AnthropicProvider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

func describeAnthropicError(body []byte) (string, string) {
	var apiErr anthropicError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return "", ""
	}
	return apiErr.Error.Type, apiErr.Error.Message
}
