package companies

import (
	"context"
	"database/sql"
	"fmt"
)

// Store is the postgres-backed company store. Membership is derived from
// users.company_id rather than a join table, so there is a single source of
// truth for who belongs where.
type Store struct {
	db *sql.DB
}

// NewStore creates a company store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the companies table if it does not exist
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS companies (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating companies table: %w", err)
	}
	return nil
}

// Create inserts a company and fills in generated fields
func (s *Store) Create(ctx context.Context, company *Company) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO companies (name) VALUES ($1)
		RETURNING id, is_active, created_at, updated_at
	`, company.Name).Scan(&company.ID, &company.IsActive, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating company: %w", err)
	}
	return nil
}

// GetByID retrieves a company by id. Returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Company, error) {
	company := &Company{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM companies WHERE id = $1
	`, id).Scan(&company.ID, &company.Name, &company.IsActive, &company.CreatedAt, &company.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting company %d: %w", id, err)
	}
	return company, nil
}

// GetByName retrieves a company by name. Returns nil, nil when absent.
func (s *Store) GetByName(ctx context.Context, name string) (*Company, error) {
	company := &Company{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM companies WHERE name = $1
	`, name).Scan(&company.ID, &company.Name, &company.IsActive, &company.CreatedAt, &company.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting company by name: %w", err)
	}
	return company, nil
}

// List returns active companies ordered by id
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM companies WHERE is_active = true
		ORDER BY id ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()

	var result []*Company
	for rows.Next() {
		company := &Company{}
		if err := rows.Scan(&company.ID, &company.Name, &company.IsActive, &company.CreatedAt, &company.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		result = append(result, company)
	}
	return result, rows.Err()
}

// UpdateName renames a company
func (s *Store) UpdateName(ctx context.Context, id int64, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE companies SET name = $1, updated_at = NOW()
		WHERE id = $2 AND is_active = true
	`, name, id)
	if err != nil {
		return fmt.Errorf("updating company %d: %w", id, err)
	}
	return requireRowAffected(result)
}

// SoftDelete deactivates a company
func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE companies SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND is_active = true
	`, id)
	if err != nil {
		return fmt.Errorf("deleting company %d: %w", id, err)
	}
	return requireRowAffected(result)
}

// MemberIDs returns the ids of active users belonging to the company
func (s *Store) MemberIDs(ctx context.Context, companyID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM users WHERE company_id = $1 AND is_active = true ORDER BY id ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing members of company %d: %w", companyID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignMember moves a user into the company
func (s *Store) AssignMember(ctx context.Context, companyID, userID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET company_id = $1, updated_at = NOW()
		WHERE id = $2 AND is_active = true
	`, companyID, userID)
	if err != nil {
		return fmt.Errorf("assigning user %d to company %d: %w", userID, companyID, err)
	}
	return requireRowAffected(result)
}

// RemoveMember detaches a user from the company. Removing a user who is not
// a member reads as not found.
func (s *Store) RemoveMember(ctx context.Context, companyID, userID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET company_id = NULL, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
	`, userID, companyID)
	if err != nil {
		return fmt.Errorf("removing user %d from company %d: %w", userID, companyID, err)
	}
	return requireRowAffected(result)
}

// CompanyIDForSubject returns the subject's company id, or 0 when the subject
// has no company. Implements the usage meter's company lookup.
func (s *Store) CompanyIDForSubject(ctx context.Context, subjectID int64) (int64, error) {
	var companyID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT company_id FROM users WHERE id = $1
	`, subjectID).Scan(&companyID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting company for subject %d: %w", subjectID, err)
	}
	if !companyID.Valid {
		return 0, nil
	}
	return companyID.Int64, nil
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
