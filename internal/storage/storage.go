// Package storage defines the invocation-record store interface. The
// pipeline itself is stateless; recording is a collaborator concern wired
// in by the entrypoints.
package storage

import (
	"context"
	"time"
)

// Invocation is one recorded pipeline run.
type Invocation struct {
	ID         string
	RequestID  string
	Provider   string
	Model      string
	Text       string
	ParseError string
	Where      string
	DurationMS int64
	CreatedAt  time.Time
}

// InvocationStore persists invocation records.
type InvocationStore interface {
	Record(ctx context.Context, inv *Invocation) error
	Close() error
}
