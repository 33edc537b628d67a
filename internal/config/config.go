// Package config loads the process configuration from an optional
// config.yaml plus LLMKIT_-prefixed environment variables. Components
// receive the loaded values at construction time; nothing in the pipeline
// reads the process environment directly except provider credentials, which
// are resolved by env-var name at call time.
package config

import (
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Providers ProvidersConfig `koanf:"providers"`
	Allowlist AllowlistConfig `koanf:"allowlist"`
	RAG       RAGConfig       `koanf:"rag"`
	Prompt    PromptConfig    `koanf:"prompt"`
	Storage   StorageConfig   `koanf:"storage"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type ProvidersConfig struct {
	// TimeoutSeconds bounds every outbound provider call. It is a fixed
	// network timeout, not a cooperative cancellation policy.
	TimeoutSeconds int `koanf:"timeout_seconds"`

	OpenAI EndpointConfig `koanf:"openai"`
	YTL    EndpointConfig `koanf:"ytl"`
	Gemini EndpointConfig `koanf:"gemini"`
}

// EndpointConfig parameterizes one provider adapter: where to POST and
// which environment variable holds its credential.
type EndpointConfig struct {
	Endpoint  string `koanf:"endpoint"`
	APIKeyEnv string `koanf:"api_key_env"`
}

type AllowlistConfig struct {
	Path string `koanf:"path"`
}

type RAGConfig struct {
	// Dir is an override directory searched before the default rag dir
	// when resolving a rag_id to a context file.
	Dir string `koanf:"dir"`
	// DefaultDir is the fixed fallback directory.
	DefaultDir string `koanf:"default_dir"`
	// MaxChars truncates resolved context text when > 0.
	MaxChars int `koanf:"max_chars"`
}

type PromptConfig struct {
	// SystemDefault replaces the built-in default system text when set.
	SystemDefault string `koanf:"system_default"`
	// JSONContract replaces the built-in JSON-contract instruction when set.
	JSONContract string `koanf:"json_contract"`
	// AppendJSONContract opts in to appending the JSON-contract
	// instruction to the system message when return_json is requested.
	AppendJSONContract bool `koanf:"append_json_contract"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile loads configuration from the given YAML file (missing file is
// fine) with LLMKIT_-prefixed environment variables layered on top.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("LLMKIT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "LLMKIT_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Providers.OpenAI.Endpoint = substituteEnvVars(cfg.Providers.OpenAI.Endpoint)
	cfg.Providers.YTL.Endpoint = substituteEnvVars(cfg.Providers.YTL.Endpoint)
	cfg.Providers.Gemini.Endpoint = substituteEnvVars(cfg.Providers.Gemini.Endpoint)

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":                  8080,
		"providers.timeout_seconds":    30,
		"providers.openai.endpoint":    "https://api.openai.com/v1/chat/completions",
		"providers.openai.api_key_env": "OPENAI_API_KEY",
		"providers.ytl.endpoint":       "https://api.ytlailabs.tech/v1/chat/completions",
		"providers.ytl.api_key_env":    "YTL_API_KEY",
		"providers.gemini.endpoint":    "https://generativelanguage.googleapis.com/v1beta",
		"providers.gemini.api_key_env": "GEMINI_API_KEY",
		"allowlist.path":               "configs/allowlist.yaml",
		"rag.default_dir":              "rag",
		"storage.type":                 "none",
		"storage.sqlite.path":          "llmkit.db",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
