// Package history keeps pipeline runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Run struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	Inputs    json.RawMessage `json:"inputs"`
	Summary   json.RawMessage `json:"summary"`
	Error     string          `json:"error,omitempty"`
}

type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and ensures schema.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps sqlite writes serialised
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            kind TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL,
            inputs_json TEXT NOT NULL,
            summary_json TEXT,
            error_message TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save records a run and returns its id. summary may be nil for failed runs.
func (s *Store) Save(ctx context.Context, kind string, inputs, summary any, runErr error) (string, error) {
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal inputs: %w", err)
	}
	var summaryJSON []byte
	if summary != nil {
		if summaryJSON, err = json.Marshal(summary); err != nil {
			return "", fmt.Errorf("failed to marshal summary: %w", err)
		}
	}
	var errorMessage sql.NullString
	if runErr != nil {
		errorMessage = sql.NullString{String: runErr.Error(), Valid: true}
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, created_at, inputs_json, summary_json, error_message) VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, time.Now().UTC(), string(inputsJSON), nullableJSON(summaryJSON), errorMessage)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}

func nullableJSON(data []byte) sql.NullString {
	if data == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

// List returns the latest runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, created_at, inputs_json, summary_json, error_message FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var inputs string
		var summary, errorMessage sql.NullString
		if err := rows.Scan(&r.ID, &r.Kind, &r.CreatedAt, &inputs, &summary, &errorMessage); err != nil {
			return nil, err
		}
		r.Inputs = json.RawMessage(inputs)
		if summary.Valid {
			r.Summary = json.RawMessage(summary.String)
		}
		r.Error = errorMessage.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var r Run
	var inputs string
	var summary, errorMessage sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, created_at, inputs_json, summary_json, error_message FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Kind, &r.CreatedAt, &inputs, &summary, &errorMessage)
	if err != nil {
		return nil, err
	}
	r.Inputs = json.RawMessage(inputs)
	if summary.Valid {
		r.Summary = json.RawMessage(summary.String)
	}
	r.Error = errorMessage.String
	return &r, nil
}
