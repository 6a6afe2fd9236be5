package companies

import (
	"errors"
	"time"
)

var (
	// ErrNotFound means the company does not exist or has been deleted
	ErrNotFound = errors.New("companies: not found")

	// ErrNameExists means a company with that name already exists
	ErrNameExists = errors.New("companies: name already exists")
)

// Company is a tenant. Users belong to at most one company.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCompanyRequest is the payload for creating a company
type CreateCompanyRequest struct {
	Name string `json:"name"`
}

// UpdateCompanyRequest is the payload for renaming a company
type UpdateCompanyRequest struct {
	Name string `json:"name"`
}
