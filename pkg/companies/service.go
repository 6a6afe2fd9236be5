package companies

import (
	"context"
	"fmt"
	"strings"
)

// Service implements company lifecycle on top of the store
type Service struct {
	store *Store
}

// NewService creates a company service
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Create creates a company with a unique name
func (s *Service) Create(ctx context.Context, req CreateCompanyRequest) (*Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("companies: name is required")
	}

	existing, err := s.store.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrNameExists
	}

	company := &Company{Name: name}
	if err := s.store.Create(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// Get retrieves an active company. Deleted companies read as not found.
func (s *Service) Get(ctx context.Context, id int64) (*Company, error) {
	company, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil || !company.IsActive {
		return nil, ErrNotFound
	}
	return company, nil
}

// List returns active companies ordered by id
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Company, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.List(ctx, limit, offset)
}

// Rename changes a company's name
func (s *Service) Rename(ctx context.Context, id int64, req UpdateCompanyRequest) (*Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("companies: name is required")
	}

	existing, err := s.store.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, ErrNameExists
	}

	if err := s.store.UpdateName(ctx, id, name); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete deactivates a company
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.SoftDelete(ctx, id)
}

// MemberIDs returns the ids of the company's active members
func (s *Service) MemberIDs(ctx context.Context, id int64) ([]int64, error) {
	return s.store.MemberIDs(ctx, id)
}

// AddMember moves a user into the company. The company must be active.
func (s *Service) AddMember(ctx context.Context, companyID, userID int64) error {
	if _, err := s.Get(ctx, companyID); err != nil {
		return err
	}
	return s.store.AssignMember(ctx, companyID, userID)
}

// RemoveMember detaches a user from the company
func (s *Service) RemoveMember(ctx context.Context, companyID, userID int64) error {
	return s.store.RemoveMember(ctx, companyID, userID)
}
