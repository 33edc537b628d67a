// Package gemini implements the generateContent adapter. Its central job
// beyond the HTTP call is translation in both directions: the internal
// role/content message sequence into Gemini's contents/systemInstruction
// shape on the way out, and the native candidates/usageMetadata response
// back into the same completion shape the OpenAI-style adapter returns, so
// downstream consumers depend on exactly one response format.
package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// AdapterOption configures the adapter.
type AdapterOption func(*Adapter)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(baseURL string) AdapterOption {
	return func(a *Adapter) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) AdapterOption {
	return func(a *Adapter) {
		a.httpClient = httpClient
	}
}

// Adapter posts generateContent requests to the Gemini API.
type Adapter struct {
	baseURL    string
	apiKeyEnv  string
	httpClient *http.Client
}

var _ provider.ChatAdapter = (*Adapter)(nil)

// New creates an adapter reading its API key from the named environment
// variable at call time.
func New(apiKeyEnv string, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		baseURL:    defaultBaseURL,
		apiKeyEnv:  apiKeyEnv,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate performs one generateContent call. A blank credential is an
// adapter error before any network attempt.
func (a *Adapter) Generate(ctx context.Context, messages []domain.Message, cfg provider.GenerateConfig) (*domain.Completion, error) {
	apiKey := sanitizeAPIKey(os.Getenv(a.apiKeyEnv))
	if apiKey == "" {
		return nil, domain.NewMissingCredentialError(domain.ProviderGemini, a.apiKeyEnv)
	}

	payload := buildPayload(messages, cfg)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", a.baseURL, cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.AdapterError{Provider: domain.ProviderGemini, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.AdapterError{Provider: domain.ProviderGemini, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewHTTPAdapterError(domain.ProviderGemini, resp.StatusCode, respBody)
	}

	return normalize(respBody), nil
}

// buildPayload translates the internal message sequence into Gemini's
// native shape: system and developer messages are concatenated into one
// systemInstruction block, assistant maps to role "model", everything else
// to "user".
func buildPayload(messages []domain.Message, cfg provider.GenerateConfig) generateRequest {
	var systemParts []string
	var contents []content

	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem, domain.RoleDeveloper:
			if text := strings.TrimSpace(m.Content); text != "" {
				systemParts = append(systemParts, text)
			}
			continue
		}

		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}

	genConfig := &generationConfig{
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		MaxOutputTokens: cfg.MaxTokens,
	}
	if cfg.ReturnJSON {
		genConfig.ResponseMimeType = "application/json"
	}

	payload := generateRequest{
		Contents:         contents,
		GenerationConfig: genConfig,
	}
	if systemText := strings.Join(systemParts, "\n\n"); systemText != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: systemText}}}
	}
	return payload
}

// normalize re-shapes the native response into the adapter-layer contract:
// text from candidates[0].content.parts[0].text (empty when any step of
// that path is absent), token counts from usageMetadata (zero when absent).
func normalize(respBody []byte) *domain.Completion {
	var native generateResponse
	// A body that fails to parse still normalizes, to an empty completion.
	_ = json.Unmarshal(respBody, &native)

	var text string
	if len(native.Candidates) > 0 && len(native.Candidates[0].Content.Parts) > 0 {
		text = native.Candidates[0].Content.Parts[0].Text
	}

	return &domain.Completion{
		Choices: []domain.Choice{
			{Message: domain.Message{Role: domain.RoleAssistant, Content: text}},
		},
		Usage: domain.Usage{
			PromptTokens:     native.UsageMetadata.PromptTokenCount,
			CompletionTokens: native.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      native.UsageMetadata.TotalTokenCount,
		},
		Raw: json.RawMessage(respBody),
	}
}

// sanitizeAPIKey strips whitespace and stray quoting that commonly leaks
// into pasted keys, including smart quotes.
func sanitizeAPIKey(raw string) string {
	k := strings.TrimSpace(raw)
	k = strings.Trim(k, ` "'`+"`")
	k = strings.Trim(k, "“”‘’")
	return k
}
