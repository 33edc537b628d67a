// Package sqlite is a SQLite implementation of storage.InvocationStore.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ytlailabs/llmkit/internal/storage"
)

// Store persists invocation records in a SQLite database.
type Store struct {
	db *sql.DB
}

var _ storage.InvocationStore = (*Store)(nil)

// New opens (creating if needed) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS invocations (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			text TEXT,
			parse_error TEXT,
			failure_stage TEXT,
			duration_ms INTEGER,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_request ON invocations(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_provider ON invocations(provider)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts one invocation row.
func (s *Store) Record(ctx context.Context, inv *storage.Invocation) error {
	id := inv.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := inv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invocations (id, request_id, provider, model, text, parse_error, failure_stage, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, inv.RequestID, inv.Provider, inv.Model, inv.Text, inv.ParseError, inv.Where, inv.DurationMS, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// List returns the most recent invocations, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*storage.Invocation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, provider, model, text, parse_error, failure_stage, duration_ms, created_at
		 FROM invocations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	var out []*storage.Invocation
	for rows.Next() {
		inv := &storage.Invocation{}
		if err := rows.Scan(&inv.ID, &inv.RequestID, &inv.Provider, &inv.Model,
			&inv.Text, &inv.ParseError, &inv.Where, &inv.DurationMS, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
