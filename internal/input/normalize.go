// Package input turns an arbitrary loosely-typed request object into a
// strict InputSpec.
//
// Rules:
//   - provider is lower-cased and trimmed; unknown values fall back to the
//     default provider rather than failing
//   - an empty model gets the provider-specific default
//   - string values beginning with '@' are file references resolved against
//     a caller-supplied base directory; an unreadable reference is the one
//     normalization failure that is reported as an error
//   - boolean and numeric fields parse leniently and fall back to their
//     defaults, never raising
//   - caller-supplied messages are filtered to the four supported roles
package input

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ytlailabs/llmkit/internal/domain"
)

// Normalize parses raw into an InputSpec. fileBase is the directory against
// which relative @file references are resolved.
func Normalize(raw map[string]any, fileBase string) (*domain.InputSpec, error) {
	provider := normalizeProvider(raw["provider"])

	model := strings.TrimSpace(asString(raw["model"]))
	if model == "" {
		model = domain.DefaultModels[provider]
	}

	options := domain.DefaultCallOptions()
	if opts, ok := raw["options"].(map[string]any); ok {
		options.MaxTokens = toInt(opts["max_tokens"], options.MaxTokens)
		options.Temperature = toFloat(opts["temperature"], options.Temperature)
		options.TopP = toFloat(opts["top_p"], options.TopP)
		options.Stream = toBool(opts["stream"], options.Stream)
	}

	systemPrompt, err := readTextRef("system_prompt", raw["system_prompt"], fileBase)
	if err != nil {
		return nil, err
	}
	userPrompt, err := readTextRef("user_prompt", raw["user_prompt"], fileBase)
	if err != nil {
		return nil, err
	}
	ragText, err := readTextRef("rag_text", raw["rag_text"], fileBase)
	if err != nil {
		return nil, err
	}

	return &domain.InputSpec{
		Provider:     provider,
		Model:        model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		RAGID:        strings.TrimSpace(asString(raw["rag_id"])),
		RAGText:      ragText,
		ReturnJSON:   toBool(raw["return_json"], false),
		Strict:       toBool(raw["strict"], false),
		Options:      options,
		Messages:     sanitizeMessages(raw["messages"]),
	}, nil
}

func normalizeProvider(v any) domain.Provider {
	p := domain.Provider(strings.ToLower(strings.TrimSpace(asString(v))))
	if p.Supported() {
		return p
	}
	return domain.DefaultProvider
}

// readTextRef returns the literal string value, or the referenced file's
// contents when the value starts with '@'.
func readTextRef(field string, v any, fileBase string) (string, error) {
	s := asString(v)
	if !strings.HasPrefix(s, "@") {
		return s, nil
	}

	path := s[1:]
	if !filepath.IsAbs(path) {
		path = filepath.Join(fileBase, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.NormalizationError{Field: field, Ref: s, Err: err}
	}
	return string(data), nil
}

// sanitizeMessages keeps only object entries with a supported role, reduced
// to {role, content}. Order is preserved.
func sanitizeMessages(v any) []domain.Message {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	var out []domain.Message
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		role := strings.ToLower(strings.TrimSpace(asString(m["role"])))
		switch role {
		case domain.RoleSystem, domain.RoleDeveloper, domain.RoleUser, domain.RoleAssistant:
		default:
			continue
		}
		out = append(out, domain.Message{Role: role, Content: asString(m["content"])})
	}
	return out
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toBool(v any, def bool) bool {
	switch t := v.(type) {
	case nil:
		return def
	case bool:
		return t
	}
	switch strings.ToLower(strings.TrimSpace(asString(v))) {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	}
	return def
}

func toInt(v any, def int) int {
	switch t := v.(type) {
	case nil:
		return def
	case int:
		return t
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

func toFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case nil:
		return def
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}
