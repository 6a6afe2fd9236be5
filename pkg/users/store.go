package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/praxishq/praxis/pkg/auth"
)

// Store is the postgres-backed system of record for users
type Store struct {
	db *sql.DB
}

// NewStore creates a user store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the users table if it does not exist
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			roles TEXT[] NOT NULL DEFAULT '{"User"}',
			company_id BIGINT,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}
	return nil
}

// Create inserts a user and fills in generated fields
func (s *Store) Create(ctx context.Context, user *User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, password_hash, roles, company_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at, updated_at
	`, user.Email, user.Name, user.PasswordHash, pq.Array(user.Roles), user.CompanyID).
		Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

const userColumns = `id, email, name, password_hash, roles, company_id, is_active, created_at, updated_at`

func scanUser(scanner interface{ Scan(...interface{}) error }) (*User, error) {
	user := &User{}
	err := scanner.Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		pq.Array(&user.Roles), &user.CompanyID, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by id. Returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email. Returns nil, nil when absent.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return user, nil
}

// List returns users ordered by id
func (s *Store) List(ctx context.Context, limit, offset int) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY id ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var result []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

// UpdateProfile updates the provided profile fields
func (s *Store) UpdateProfile(ctx context.Context, id int64, email, name *string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = COALESCE($1, email), name = COALESCE($2, name), updated_at = NOW()
		WHERE id = $3 AND is_active = true
	`, email, name, id)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", id, err)
	}
	return requireRowAffected(result)
}

// UpdateRoles replaces the user's role set
func (s *Store) UpdateRoles(ctx context.Context, id int64, roles []string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET roles = $1, updated_at = NOW()
		WHERE id = $2 AND is_active = true
	`, pq.Array(roles), id)
	if err != nil {
		return fmt.Errorf("updating roles for user %d: %w", id, err)
	}
	return requireRowAffected(result)
}

// UpdatePassword sets a new password digest
func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = NOW()
		WHERE id = $2 AND is_active = true
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password for user %d: %w", id, err)
	}
	return requireRowAffected(result)
}

// SoftDelete deactivates a user. Deactivated users fail principal resolution
// on their next privilege-sensitive request, even with an unexpired token.
func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND is_active = true
	`, id)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	return requireRowAffected(result)
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// LookupSubject implements auth.SubjectLookup
func (s *Store) LookupSubject(ctx context.Context, id int64) (*auth.Subject, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &auth.Subject{
		ID:     user.ID,
		Email:  user.Email,
		Roles:  user.Roles,
		Active: user.IsActive,
	}, nil
}
