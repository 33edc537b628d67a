// Package allowlist enforces the opt-in strict policy restricting which
// (provider, model) pairs may be called.
//
// The policy document is YAML:
//
//	providers:
//	  - openai
//	  - gemini
//	models:
//	  openai:
//	    - gpt-4o-mini
//	  gemini:
//	    - gemini-2.5-flash-lite
//
// Absence of either key means no restriction on that dimension. A missing
// or unreadable document blocks strict requests (fail closed); it is never
// fatal.
package allowlist

import (
	"fmt"
	"log/slog"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ytlailabs/llmkit/internal/domain"
)

// Policy is the parsed allowlist document.
type Policy struct {
	Providers []string            `koanf:"providers"`
	Models    map[string][]string `koanf:"models"`
}

func (p *Policy) empty() bool {
	return p == nil || (len(p.Providers) == 0 && len(p.Models) == 0)
}

// Decision is the structured outcome of an allowlist check. A block is a
// negative result with a human-readable reason, not an error.
type Decision struct {
	OK     bool
	Reason string
}

// Checker loads the policy document on demand so edits take effect without
// a restart. It holds no mutable state and is safe for concurrent use.
type Checker struct {
	path   string
	logger *slog.Logger
}

func NewChecker(path string, logger *slog.Logger) *Checker {
	return &Checker{path: path, logger: logger}
}

// IsAllowed reports whether the (provider, model) pair may be called. With
// strict=false no policy is consulted at all.
func (c *Checker) IsAllowed(provider domain.Provider, model string, strict bool) Decision {
	if !strict {
		return Decision{OK: true, Reason: "strict=false"}
	}

	policy := c.load()
	if policy.empty() {
		return Decision{OK: false, Reason: "strict=true but allowlist missing or empty"}
	}

	if len(policy.Providers) > 0 && !contains(policy.Providers, string(provider)) {
		return Decision{OK: false, Reason: fmt.Sprintf("provider not allowed: %s", provider)}
	}

	if allowed := policy.Models[string(provider)]; len(allowed) > 0 && !contains(allowed, model) {
		return Decision{OK: false, Reason: fmt.Sprintf("model not allowed for provider=%s: %s", provider, model)}
	}

	return Decision{OK: true, Reason: "allowed"}
}

// load parses the policy file. Any failure is reported as an empty policy.
func (c *Checker) load() *Policy {
	k := koanf.New(".")
	if err := k.Load(file.Provider(c.path), yaml.Parser()); err != nil {
		c.logger.Debug("allowlist load failed", slog.String("path", c.path), slog.String("error", err.Error()))
		return &Policy{}
	}

	var policy Policy
	if err := k.Unmarshal("", &policy); err != nil {
		c.logger.Warn("allowlist unmarshal failed", slog.String("path", c.path), slog.String("error", err.Error()))
		return &Policy{}
	}
	return &policy
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
