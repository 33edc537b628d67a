package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ytlailabs/llmkit/internal/domain"
	"github.com/ytlailabs/llmkit/internal/provider"
)

const responseBody = `{
	"id": "chatcmpl-123",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
}`

func TestGenerate(t *testing.T) {
	var gotPayload map[string]any
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(responseBody))
	}))
	defer srv.Close()

	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	a := New(srv.URL, "TEST_OPENAI_KEY")

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: "s"},
		{Role: domain.RoleDeveloper, Content: "ctx"},
		{Role: domain.RoleUser, Content: "hi"},
	}
	completion, err := a.Generate(context.Background(), messages, provider.GenerateConfig{
		Model:       "gpt-4o-mini",
		MaxTokens:   1024,
		Temperature: 0.7,
		TopP:        1.0,
		ReturnJSON:  true,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want bearer credential", gotAuth)
	}
	if gotPayload["model"] != "gpt-4o-mini" {
		t.Errorf("payload model = %v", gotPayload["model"])
	}
	if gotPayload["max_tokens"] != float64(1024) {
		t.Errorf("payload max_tokens = %v", gotPayload["max_tokens"])
	}
	// Developer role passes through untranslated.
	msgs := gotPayload["messages"].([]any)
	if len(msgs) != 3 || msgs[1].(map[string]any)["role"] != "developer" {
		t.Errorf("payload messages = %v, developer role must pass through", msgs)
	}
	rf, ok := gotPayload["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("payload response_format = %v, want json_object hint", gotPayload["response_format"])
	}

	if got := completion.Text(); got != "hello there" {
		t.Errorf("Text() = %q, want %q", got, "hello there")
	}
	if completion.Usage.TotalTokens != 13 {
		t.Errorf("usage total = %d, want 13", completion.Usage.TotalTokens)
	}
	if !strings.Contains(string(completion.Raw), "chatcmpl-123") {
		t.Error("Raw must carry the provider body unmodified")
	}
}

func TestGenerateNoJSONHintByDefault(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(responseBody))
	}))
	defer srv.Close()

	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	a := New(srv.URL, "TEST_OPENAI_KEY")

	if _, err := a.Generate(context.Background(), nil, provider.GenerateConfig{Model: "m"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, present := gotPayload["response_format"]; present {
		t.Error("response_format must be omitted when return_json is false")
	}
}

func TestGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	a := New(srv.URL, "TEST_OPENAI_KEY")

	_, err := a.Generate(context.Background(), nil, provider.GenerateConfig{Model: "m"})
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}

	var adapterErr *domain.AdapterError
	if !errors.As(err, &adapterErr) {
		t.Fatalf("error type = %T, want *domain.AdapterError", err)
	}
	if adapterErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", adapterErr.Status)
	}
	if len(adapterErr.Body) != 800 {
		t.Errorf("body excerpt length = %d, want truncation to 800", len(adapterErr.Body))
	}
}

func TestGenerateMissingCredential(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "  ")
	a := New("http://127.0.0.1:0", "TEST_OPENAI_KEY")

	_, err := a.Generate(context.Background(), nil, provider.GenerateConfig{Model: "m"})
	if err == nil {
		t.Fatal("expected error for blank credential")
	}
	if !strings.Contains(err.Error(), "TEST_OPENAI_KEY") {
		t.Errorf("error = %v, want it to name the env var", err)
	}
}
