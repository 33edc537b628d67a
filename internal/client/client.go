// Package client sequences the request pipeline: normalize, allowlist,
// prompt assembly, provider dispatch, response coercion. Run is the sole
// boundary that converts every failure into a structured envelope; the
// components it calls fail loudly because Run is their only caller.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ytlailabs/llmkit/internal/allowlist"
	"github.com/ytlailabs/llmkit/internal/coerce"
	"github.com/ytlailabs/llmkit/internal/config"
	"github.com/ytlailabs/llmkit/internal/domain"
	"github.com/ytlailabs/llmkit/internal/input"
	"github.com/ytlailabs/llmkit/internal/prompt"
	"github.com/ytlailabs/llmkit/internal/provider"
	"github.com/ytlailabs/llmkit/internal/provider/gemini"
	"github.com/ytlailabs/llmkit/internal/provider/openai"
)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by every adapter. Intended
// for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRegistry replaces the adapter dispatch table. Intended for tests.
func WithRegistry(registry *provider.Registry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// Client is the pipeline orchestrator. It holds only read-only
// configuration after construction and is safe for concurrent use.
type Client struct {
	fileBase   string
	assembler  *prompt.Assembler
	checker    *allowlist.Checker
	registry   *provider.Registry
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a client from configuration. fileBase is the directory
// against which @file references in requests are resolved.
func New(cfg *config.Config, fileBase string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		fileBase: fileBase,
		assembler: &prompt.Assembler{
			SystemDefault:      cfg.Prompt.SystemDefault,
			JSONContract:       cfg.Prompt.JSONContract,
			AppendJSONContract: cfg.Prompt.AppendJSONContract,
			RAGDirs:            []string{cfg.RAG.Dir, cfg.RAG.DefaultDir},
			RAGMaxChars:        cfg.RAG.MaxChars,
		},
		checker: allowlist.NewChecker(cfg.Allowlist.Path, logger),
		logger:  logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: time.Duration(cfg.Providers.TimeoutSeconds) * time.Second}
	}
	if c.registry == nil {
		c.registry = provider.NewRegistry(map[domain.Provider]provider.ChatAdapter{
			domain.ProviderOpenAI: openai.New(cfg.Providers.OpenAI.Endpoint, cfg.Providers.OpenAI.APIKeyEnv,
				openai.WithHTTPClient(c.httpClient)),
			domain.ProviderYTL: openai.New(cfg.Providers.YTL.Endpoint, cfg.Providers.YTL.APIKeyEnv,
				openai.WithHTTPClient(c.httpClient), openai.WithProviderName(domain.ProviderYTL)),
			domain.ProviderGemini: gemini.New(cfg.Providers.Gemini.APIKeyEnv,
				gemini.WithBaseURL(cfg.Providers.Gemini.Endpoint), gemini.WithHTTPClient(c.httpClient)),
		})
	}

	return c
}

// Run executes the pipeline for one raw request. It always returns an
// envelope, never panics to its caller: every failure is recorded in
// parse_error with meta.where naming the failing stage.
func (c *Client) Run(ctx context.Context, raw map[string]any, requestID string) (envelope *domain.ResultEnvelope) {
	meta := domain.Meta{RequestID: requestID, Steps: map[string]any{}}
	start := time.Now()

	fail := func(where, reason string) *domain.ResultEnvelope {
		meta.Where = where
		meta.Steps["total_ms"] = elapsedMS(start)
		c.logger.Warn("run failed",
			slog.String("request_id", requestID),
			slog.String("where", where),
			slog.String("reason", reason),
		)
		return &domain.ResultEnvelope{ParseError: reason, Meta: meta}
	}

	defer func() {
		if r := recover(); r != nil {
			envelope = fail("client.run", fmt.Sprintf("panic: %v", r))
		}
	}()

	spec, err := input.Normalize(raw, c.fileBase)
	if err != nil {
		return fail("input", err.Error())
	}
	meta.Steps["parse_input_ms"] = elapsedMS(start)

	decision := c.checker.IsAllowed(spec.Provider, spec.Model, spec.Strict)
	meta.Steps["allowlist_reason"] = decision.Reason
	if !decision.OK {
		return fail("allowlist", decision.Reason)
	}

	prepared := c.assembler.Prepare(spec)
	meta.Steps["prepare_ms"] = elapsedMS(start)

	adapter, err := c.registry.Lookup(prepared.Provider)
	if err != nil {
		return fail("adapter_select", err.Error())
	}

	c.logger.Info("calling provider",
		slog.String("request_id", requestID),
		slog.String("provider", string(prepared.Provider)),
		slog.String("model", prepared.Model),
	)

	callStart := time.Now()
	completion, err := adapter.Generate(ctx, prepared.Messages, provider.GenerateConfig{
		Model:       prepared.Model,
		MaxTokens:   prepared.Options.MaxTokens,
		Temperature: prepared.Options.Temperature,
		TopP:        prepared.Options.TopP,
		Stream:      prepared.Options.Stream,
		ReturnJSON:  prepared.ReturnJSON,
	})
	meta.Steps["call_ms"] = elapsedMS(callStart)
	if err != nil {
		return fail("client.run", err.Error())
	}

	text := completion.Text()

	var parsed map[string]any
	var parseError string
	if prepared.ReturnJSON {
		if parsed, err = coerce.JSONObject(text); err != nil {
			parseError = err.Error()
		}
	}

	meta.Steps["total_ms"] = elapsedMS(start)
	return &domain.ResultEnvelope{
		Raw: completion.Raw,
		View: &domain.View{
			Provider: prepared.Provider,
			Model:    prepared.Model,
			Text:     text,
			JSON:     parsed,
			Meta:     domain.ViewMeta{ReturnJSON: prepared.ReturnJSON},
		},
		ParseError: parseError,
		Meta:       meta,
	}
}

// DecodeRequest accepts the entry-operation body shapes: an already-decoded
// object, or a JSON string encoding one. Anything else decodes to an empty
// request, which the pipeline handles with its defaults.
func DecodeRequest(body any) map[string]any {
	switch t := body.(type) {
	case map[string]any:
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return map[string]any{}
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(s), &out); err == nil && out != nil {
			return out
		}
	case []byte:
		var out map[string]any
		if err := json.Unmarshal(t, &out); err == nil && out != nil {
			return out
		}
	}
	return map[string]any{}
}

func elapsedMS(t time.Time) int64 {
	return time.Since(t).Milliseconds()
}
