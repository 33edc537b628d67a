// Package domain holds the shared types that cross pipeline stage
// boundaries. Each stage produces a new value consumed by the next; nothing
// here is mutated after construction except the orchestrator-owned step map.
package domain

import "encoding/json"

// Provider identifies an upstream LLM API family.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderYTL    Provider = "ytl"
	ProviderGemini Provider = "gemini"

	// DefaultProvider is substituted when the request names no provider
	// or names one outside the supported set.
	DefaultProvider = ProviderYTL
)

// DefaultModels maps each provider to the model used when the request
// leaves the model field empty.
var DefaultModels = map[Provider]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderYTL:    "ILMU-text",
	ProviderGemini: "gemini-2.5-flash-lite",
}

// Supported reports whether p is one of the closed provider set.
func (p Provider) Supported() bool {
	switch p {
	case ProviderOpenAI, ProviderYTL, ProviderGemini:
		return true
	}
	return false
}

// Message roles. Only these four are ever retained; anything else on an
// incoming message is dropped during normalization.
const (
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the ordered prompt sequence.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallOptions carries the generation parameters unchanged through the
// pipeline.
type CallOptions struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Stream      bool    `json:"stream"`
}

// DefaultCallOptions returns the documented parameter defaults.
func DefaultCallOptions() CallOptions {
	return CallOptions{
		MaxTokens:   1024,
		Temperature: 0.7,
		TopP:        1.0,
		Stream:      false,
	}
}

// InputSpec is the strict, normalized form of an arbitrary incoming request.
type InputSpec struct {
	Provider     Provider
	Model        string
	SystemPrompt string
	UserPrompt   string
	RAGID        string
	RAGText      string
	ReturnJSON   bool
	Strict       bool
	Options      CallOptions

	// Messages is the advanced-mode pass-through: a caller-supplied,
	// already role-filtered message sequence. When non-empty it takes
	// precedence over SystemPrompt/UserPrompt for message construction,
	// except that a non-empty SystemPrompt still overrides the system
	// entry's content.
	Messages []Message
}

// PreparedRequest is what crosses into the provider adapter boundary.
type PreparedRequest struct {
	Provider   Provider
	Model      string
	Messages   []Message
	ReturnJSON bool
	Options    CallOptions
}

// Usage is the pass-through token accounting block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one candidate completion in the normalized response shape.
type Choice struct {
	Message Message `json:"message"`
}

// Completion is the single response shape every adapter returns, regardless
// of the provider's native wire format. Raw preserves the provider's
// untranslated JSON body for diagnostics.
type Completion struct {
	Choices []Choice        `json:"choices"`
	Usage   Usage           `json:"usage"`
	Raw     json.RawMessage `json:"-"`
}

// Text returns choices[0].message.content, or "" when any part of that
// path is absent.
func (c *Completion) Text() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content
}

// View is the caller-friendly projection of a successful invocation.
type View struct {
	Provider Provider       `json:"provider"`
	Model    string         `json:"model"`
	Text     string         `json:"text"`
	JSON     map[string]any `json:"json"`
	Meta     ViewMeta       `json:"meta"`
}

// ViewMeta echoes request flags relevant to interpreting the view.
type ViewMeta struct {
	ReturnJSON bool `json:"return_json"`
}

// Meta is the diagnostic block of a result envelope. Steps maps stage names
// to elapsed milliseconds or, for the allowlist stage, the decision reason.
type Meta struct {
	RequestID string         `json:"request_id"`
	Steps     map[string]any `json:"steps"`
	Where     string         `json:"where,omitempty"`
}

// ResultEnvelope is the uniform wrapper returned from the orchestrator for
// every invocation, success or failure. Raw is the provider's native JSON
// body (nil on failure before the call); ParseError carries normalization,
// policy, adapter, or coercion diagnostics.
type ResultEnvelope struct {
	Raw        json.RawMessage `json:"raw"`
	View       *View           `json:"view"`
	ParseError string          `json:"parse_error"`
	Meta       Meta            `json:"meta"`
}
