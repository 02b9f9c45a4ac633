package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EndpointProvider talks to a plain chat relay: it POSTs
// {"messages": [...], "temperature": t} and reads {"content": "..."}.
// A relay signals quota exhaustion with HTTP 429 or
// {"error": "QUOTA_EXCEEDED"}.
type EndpointProvider struct {
	url    string
	apiKey string
	client *httpDoer
	config Config
}

type endpointRequest struct {
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	Model       string    `json:"model,omitempty"`
}

type endpointResponse struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// NewEndpointProvider creates a provider for the relay at config.BaseURL
func NewEndpointProvider(config Config) (*EndpointProvider, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("endpoint provider requires a base URL (e.g. http://localhost:3000/api/chat)")
	}

	return &EndpointProvider{
		url:    config.BaseURL,
		apiKey: config.APIKey,
		client: &httpDoer{client: newHTTPClient(config, 120*time.Second), provider: "endpoint"},
		config: config,
	}, nil
}

// Name returns the provider name
func (p *EndpointProvider) Name() string {
	return "endpoint"
}

// IsAvailable sends a one-line prompt
func (p *EndpointProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.Complete(ctx, CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "ping"}}})
	if err != nil {
		p.config.Logger.Warn().Err(err).Str("provider", p.Name()).Str("url", p.url).Msg("availability check failed")
		return false
	}
	return true
}

// Complete posts the messages to the relay
func (p *EndpointProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var headers map[string]string
	if p.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + p.apiKey}
	}

	body := endpointRequest{
		Messages:    req.Messages,
		Temperature: req.Temperature,
		Model:       pick(req.Model, p.config.Model),
	}

	var resp endpointResponse
	if err := p.client.post(ctx, p.url, headers, body, &resp, describeEndpointError); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &APIError{Provider: p.Name(), StatusCode: 200, Type: resp.Error, Message: resp.Error}
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return nil, fmt.Errorf("endpoint: %w", ErrEmptyResponse)
	}
	return &CompletionResponse{Content: content, Model: body.Model}, nil
}

func describeEndpointError(body []byte) (string, string) {
	var resp endpointResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == "" {
		return "", ""
	}
	return resp.Error, resp.Error
}
