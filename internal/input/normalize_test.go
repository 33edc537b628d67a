package input

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ytlailabs/llmkit/internal/domain"
)

func TestNormalizeDefaults(t *testing.T) {
	spec, err := Normalize(map[string]any{}, t.TempDir())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if spec.Provider != domain.DefaultProvider {
		t.Errorf("provider = %s, want %s", spec.Provider, domain.DefaultProvider)
	}
	if spec.Model != domain.DefaultModels[domain.DefaultProvider] {
		t.Errorf("model = %s, want %s", spec.Model, domain.DefaultModels[domain.DefaultProvider])
	}
	if spec.Options != domain.DefaultCallOptions() {
		t.Errorf("options = %+v, want defaults", spec.Options)
	}
	if spec.ReturnJSON || spec.Strict {
		t.Error("return_json and strict should default to false")
	}
}

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want domain.Provider
	}{
		{"known provider", "openai", domain.ProviderOpenAI},
		{"upper case trimmed", "  GEMINI ", domain.ProviderGemini},
		{"unknown falls back", "mistral", domain.DefaultProvider},
		{"missing falls back", nil, domain.DefaultProvider},
		{"non-string falls back", 42, domain.DefaultProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Normalize(map[string]any{"provider": tt.in}, t.TempDir())
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if spec.Provider != tt.want {
				t.Errorf("provider = %s, want %s", spec.Provider, tt.want)
			}
		})
	}
}

func TestNormalizeDefaultModelPerProvider(t *testing.T) {
	for provider, model := range domain.DefaultModels {
		spec, err := Normalize(map[string]any{"provider": string(provider), "model": "  "}, t.TempDir())
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if spec.Model != model {
			t.Errorf("provider %s: model = %s, want %s", provider, spec.Model, model)
		}
	}
}

func TestNormalizeLenientScalars(t *testing.T) {
	raw := map[string]any{
		"return_json": "yes",
		"strict":      "0",
		"options": map[string]any{
			"max_tokens":  "2048",
			"temperature": 0.2,
			"top_p":       "not a number",
			"stream":      "definitely",
		},
	}

	spec, err := Normalize(raw, t.TempDir())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if !spec.ReturnJSON {
		t.Error(`return_json "yes" should parse true`)
	}
	if spec.Strict {
		t.Error(`strict "0" should parse false`)
	}
	if spec.Options.MaxTokens != 2048 {
		t.Errorf("max_tokens = %d, want 2048", spec.Options.MaxTokens)
	}
	if spec.Options.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", spec.Options.Temperature)
	}
	if spec.Options.TopP != 1.0 {
		t.Errorf("unparseable top_p = %v, want default 1.0", spec.Options.TopP)
	}
	if spec.Options.Stream {
		t.Error("unparseable stream should fall back to false")
	}
}

func TestNormalizeFileReference(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sys.txt"), []byte("be terse"), 0o644); err != nil {
		t.Fatal(err)
	}

	spec, err := Normalize(map[string]any{"system_prompt": "@sys.txt"}, dir)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if spec.SystemPrompt != "be terse" {
		t.Errorf("system_prompt = %q, want file contents", spec.SystemPrompt)
	}
}

func TestNormalizeMissingFileReference(t *testing.T) {
	_, err := Normalize(map[string]any{"user_prompt": "@nope.txt"}, t.TempDir())
	if err == nil {
		t.Fatal("expected error for unreadable file reference")
	}

	var normErr *domain.NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("error type = %T, want *domain.NormalizationError", err)
	}
	if normErr.Field != "user_prompt" || normErr.Ref != "@nope.txt" {
		t.Errorf("error should identify the offending reference, got %+v", normErr)
	}
}

func TestNormalizeMessagesFiltering(t *testing.T) {
	raw := map[string]any{
		"messages": []any{
			map[string]any{"role": "system", "content": "s", "name": "extra"},
			"not an object",
			map[string]any{"role": "tool", "content": "dropped"},
			map[string]any{"role": "USER ", "content": "u"},
			map[string]any{"role": "assistant", "content": "a"},
		},
	}

	spec, err := Normalize(raw, t.TempDir())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := []domain.Message{
		{Role: "system", Content: "s"},
		{Role: "user", Content: "u"},
		{Role: "assistant", Content: "a"},
	}
	if len(spec.Messages) != len(want) {
		t.Fatalf("messages = %+v, want %+v", spec.Messages, want)
	}
	for i := range want {
		if spec.Messages[i] != want[i] {
			t.Errorf("messages[%d] = %+v, want %+v", i, spec.Messages[i], want[i])
		}
	}
}
