package email

import (
	"context"
	"database/sql"
	"fmt"
)

// Store is the postgres-backed template store
type Store struct {
	db *sql.DB
}

// NewStore creates a template store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the email_templates table if it does not exist
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS email_templates (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating email_templates table: %w", err)
	}
	return nil
}

// Create inserts a template
func (s *Store) Create(ctx context.Context, t *Template) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO email_templates (name, subject, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, t.Name, t.Subject, t.Body).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating email template: %w", err)
	}
	return nil
}

// GetByName retrieves a template by name. Returns nil, nil when absent.
func (s *Store) GetByName(ctx context.Context, name string) (*Template, error) {
	t := &Template{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, subject, body, created_at, updated_at
		FROM email_templates WHERE name = $1
	`, name).Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting email template %q: %w", name, err)
	}
	return t, nil
}

// List returns all templates ordered by name
func (s *Store) List(ctx context.Context) ([]*Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, subject, body, created_at, updated_at
		FROM email_templates ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing email templates: %w", err)
	}
	defer rows.Close()

	var result []*Template
	for rows.Next() {
		t := &Template{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning email template: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// Update replaces a template's subject and body
func (s *Store) Update(ctx context.Context, name, subject, body string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE email_templates SET subject = $1, body = $2, updated_at = NOW()
		WHERE name = $3
	`, subject, body, name)
	if err != nil {
		return fmt.Errorf("updating email template %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a template
func (s *Store) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM email_templates WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting email template %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
