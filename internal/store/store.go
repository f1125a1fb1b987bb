// Package store persists extracted workflows in PostgreSQL. The full
// definition is stored as a JSONB document alongside the columns the list
// and show commands query directly.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/andresmejia3/playbook/internal/types"
	"github.com/andresmejia3/playbook/internal/workflow"
)

// Store manages the PostgreSQL connection for workflow persistence.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			source_label TEXT,
			screen_count INT NOT NULL,
			action_count INT NOT NULL,
			doc JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS workflows_created_at_idx ON workflows (created_at);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// Save upserts a workflow. Re-analyzing the same recording overwrites the
// previous document under the same ID.
func (s *Store) Save(ctx context.Context, w types.WorkflowDefinition) error {
	doc, err := workflow.Marshal(w, "json")
	if err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO workflows (id, name, source_label, screen_count, action_count, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			source_label = EXCLUDED.source_label,
			screen_count = EXCLUDED.screen_count,
			action_count = EXCLUDED.action_count,
			doc = EXCLUDED.doc,
			updated_at = NOW()
	`, w.ID, w.Name, w.SourceLabel, len(w.Screens), len(w.Actions), doc, w.CreatedAt, w.UpdatedAt)
	return err
}

// Summary is one row of the workflow listing.
type Summary struct {
	ID          string
	Name        string
	SourceLabel string
	ScreenCount int
	ActionCount int
	CreatedAt   time.Time
}

// List returns all stored workflows, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, name, COALESCE(source_label, ''), screen_count, action_count, created_at
		FROM workflows ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.SourceLabel, &sum.ScreenCount, &sum.ActionCount, &sum.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get loads one workflow document by ID.
func (s *Store) Get(ctx context.Context, id string) (types.WorkflowDefinition, error) {
	var doc []byte
	err := s.conn.QueryRow(ctx, "SELECT doc FROM workflows WHERE id = $1", id).Scan(&doc)
	if err == pgx.ErrNoRows {
		return types.WorkflowDefinition{}, fmt.Errorf("workflow %s not found", id)
	}
	if err != nil {
		return types.WorkflowDefinition{}, err
	}
	return workflow.Unmarshal(doc, "json")
}

// Rename updates the display name of a stored workflow, both in the column
// and inside the document.
func (s *Store) Rename(ctx context.Context, id, newName string) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE workflows
		SET name = $1,
		    doc = jsonb_set(doc, '{name}', to_jsonb($1::text)),
		    updated_at = NOW()
		WHERE id = $2
	`, newName, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow %s not found", id)
	}
	return nil
}

// Delete removes one stored workflow.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow %s not found", id)
	}
	return nil
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, "DROP TABLE IF EXISTS workflows CASCADE;")
	return err
}
