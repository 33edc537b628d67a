package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Providers.TimeoutSeconds != 30 {
		t.Errorf("timeout = %d, want 30", cfg.Providers.TimeoutSeconds)
	}
	if cfg.Providers.OpenAI.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("openai api_key_env = %q", cfg.Providers.OpenAI.APIKeyEnv)
	}
	if cfg.Providers.YTL.Endpoint == "" || cfg.Providers.Gemini.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("provider defaults missing: %+v", cfg.Providers)
	}
	if cfg.Allowlist.Path != "configs/allowlist.yaml" {
		t.Errorf("allowlist path = %q", cfg.Allowlist.Path)
	}
	if cfg.Storage.Type != "none" {
		t.Errorf("storage type = %q, want none", cfg.Storage.Type)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LLMKIT_SERVER__PORT", "9000")
	t.Setenv("LLMKIT_RAG__MAX_CHARS", "500")
	t.Setenv("LLMKIT_PROMPT__APPEND_JSON_CONTRACT", "true")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.RAG.MaxChars != 500 {
		t.Errorf("rag max_chars = %d, want 500", cfg.RAG.MaxChars)
	}
	if !cfg.Prompt.AppendJSONContract {
		t.Error("append_json_contract must be overridable from the environment")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7070
providers:
  ytl:
    endpoint: ${TEST_YTL_ENDPOINT}
rag:
  dir: /srv/rag
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_YTL_ENDPOINT", "https://ytl.example/v1/chat/completions")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Providers.YTL.Endpoint != "https://ytl.example/v1/chat/completions" {
		t.Errorf("ytl endpoint = %q, want env substitution", cfg.Providers.YTL.Endpoint)
	}
	if cfg.RAG.Dir != "/srv/rag" {
		t.Errorf("rag dir = %q", cfg.RAG.Dir)
	}
}
