// Package provider defines the uniform adapter contract over heterogeneous
// provider wire formats, and the dispatch table mapping provider
// identifiers to adapter instances.
package provider

import (
	"context"

	"github.com/ytlailabs/llmkit/internal/domain"
)

// GenerateConfig carries the per-call parameters into an adapter.
type GenerateConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stream      bool
	ReturnJSON  bool
}

// ChatAdapter is the single capability every provider variant implements.
// Generate performs one HTTP call and returns the normalized completion
// shape; the native body is preserved in Completion.Raw.
type ChatAdapter interface {
	Generate(ctx context.Context, messages []domain.Message, cfg GenerateConfig) (*domain.Completion, error)
}

// Registry is a pure mapping from provider identifier to adapter. It is
// populated once at construction and never mutated afterwards.
type Registry struct {
	adapters map[domain.Provider]ChatAdapter
}

func NewRegistry(adapters map[domain.Provider]ChatAdapter) *Registry {
	m := make(map[domain.Provider]ChatAdapter, len(adapters))
	for p, a := range adapters {
		m[p] = a
	}
	return &Registry{adapters: m}
}

// Lookup returns the adapter for p, or an UnsupportedProviderError. The
// miss is a dispatch failure, distinct from adapter errors: no network
// attempt has been made.
func (r *Registry) Lookup(p domain.Provider) (ChatAdapter, error) {
	adapter, ok := r.adapters[p]
	if !ok {
		return nil, &domain.UnsupportedProviderError{Provider: p}
	}
	return adapter, nil
}
