package domain

import (
	"errors"
	"fmt"
)

// maxBodyExcerpt bounds how much of an upstream error body is carried in an
// AdapterError, so diagnostics never leak unbounded payloads.
const maxBodyExcerpt = 800

// NormalizationError reports malformed input that could not be coerced into
// an InputSpec, such as an unreadable @file reference.
type NormalizationError struct {
	Field string
	Ref   string
	Err   error
}

func (e *NormalizationError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("failed to read file reference for %s: %s (%v)", e.Field, e.Ref, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// AdapterError reports a failure talking to an upstream provider: a missing
// credential, a non-2xx status, or a transport-level failure.
type AdapterError struct {
	Provider Provider
	Status   int
	Body     string
	Err      error
}

func (e *AdapterError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: adapter error", e.Provider)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// NewHTTPAdapterError builds an AdapterError for a non-2xx upstream status,
// truncating the body excerpt.
func NewHTTPAdapterError(provider Provider, status int, body []byte) *AdapterError {
	excerpt := string(body)
	if len(excerpt) > maxBodyExcerpt {
		excerpt = excerpt[:maxBodyExcerpt]
	}
	return &AdapterError{Provider: provider, Status: status, Body: excerpt}
}

// ErrMissingCredential wraps the "env var not set" adapter failure so it can
// be detected before any network attempt.
var ErrMissingCredential = errors.New("missing credential")

// NewMissingCredentialError reports an unset or blank credential variable.
func NewMissingCredentialError(provider Provider, envVar string) *AdapterError {
	return &AdapterError{
		Provider: provider,
		Err:      fmt.Errorf("%w: environment variable %s", ErrMissingCredential, envVar),
	}
}

// UnsupportedProviderError is the dispatch-time failure for a provider with
// no registered adapter. It is distinct from AdapterError: no network
// attempt was made.
type UnsupportedProviderError struct {
	Provider Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s", e.Provider)
}
