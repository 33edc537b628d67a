// Package openai implements the chat-completions adapter used for OpenAI
// and every OpenAI-compatible provider. The adapter is parameterized by an
// endpoint URL and the name of the environment variable holding its bearer
// credential, so one implementation serves multiple vendors.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ytlailabs/llmkit/internal/domain"
	"github.com/ytlailabs/llmkit/internal/provider"
)

// AdapterOption configures the adapter.
type AdapterOption func(*Adapter)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) AdapterOption {
	return func(a *Adapter) {
		a.httpClient = httpClient
	}
}

// WithProviderName overrides the provider identifier reported in errors.
// Used for OpenAI-compatible vendors sharing this adapter.
func WithProviderName(name domain.Provider) AdapterOption {
	return func(a *Adapter) {
		a.name = name
	}
}

// Adapter posts chat-completion requests to an OpenAI-style endpoint.
type Adapter struct {
	name       domain.Provider
	endpoint   string
	apiKeyEnv  string
	httpClient *http.Client
}

var _ provider.ChatAdapter = (*Adapter)(nil)

// New creates an adapter for the given endpoint. The credential is read
// from the named environment variable at call time, not at construction.
func New(endpoint, apiKeyEnv string, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		name:       domain.ProviderOpenAI,
		endpoint:   endpoint,
		apiKeyEnv:  apiKeyEnv,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type chatRequest struct {
	Model          string           `json:"model"`
	Messages       []domain.Message `json:"messages"`
	MaxTokens      int              `json:"max_tokens"`
	Temperature    float64          `json:"temperature"`
	TopP           float64          `json:"top_p"`
	Stream         bool             `json:"stream"`
	ResponseFormat *responseFormat  `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// Generate sends one authenticated POST and returns the provider's
// response body both parsed into the normalized completion shape and
// verbatim in Completion.Raw.
func (a *Adapter) Generate(ctx context.Context, messages []domain.Message, cfg provider.GenerateConfig) (*domain.Completion, error) {
	apiKey := strings.TrimSpace(os.Getenv(a.apiKeyEnv))
	if apiKey == "" {
		return nil, domain.NewMissingCredentialError(a.name, a.apiKeyEnv)
	}

	payload := chatRequest{
		Model:       cfg.Model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		Stream:      cfg.Stream,
	}
	if cfg.ReturnJSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.AdapterError{Provider: a.name, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.AdapterError{Provider: a.name, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewHTTPAdapterError(a.name, resp.StatusCode, respBody)
	}

	var completion domain.Completion
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, &domain.AdapterError{Provider: a.name, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	completion.Raw = json.RawMessage(respBody)

	return &completion, nil
}
