package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/praxishq/praxis/pkg/auth"
)

var validRoles = map[string]bool{
	string(auth.RoleUser):      true,
	string(auth.RoleAdmin):     true,
	string(auth.RoleSiteAdmin): true,
}

// Service implements user account lifecycle on top of the store. All role and
// activation mutations invalidate the principal resolver so the change takes
// effect on the subject's next privilege-sensitive request.
type Service struct {
	store    *Store
	hasher   *auth.PasswordHasher
	resolver *auth.Resolver
}

// NewService creates a user service
func NewService(store *Store, hasher *auth.PasswordHasher, resolver *auth.Resolver) *Service {
	return &Service{store: store, hasher: hasher, resolver: resolver}
}

// Register creates a new account with the default User role
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("users: invalid email %q", req.Email)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	user := &User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Roles:        []string{string(auth.RoleUser)},
		CompanyID:    req.CompanyID,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies an email/password pair. Unknown email, deactivated
// account, and wrong password all return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.store.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get retrieves an active user. Deactivated accounts read as not found.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrNotFound
	}
	return user, nil
}

// List returns users ordered by id
func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.List(ctx, limit, offset)
}

// UpdateProfile updates email and/or name
func (s *Service) UpdateProfile(ctx context.Context, id int64, req UpdateUserRequest) (*User, error) {
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("users: invalid email %q", *req.Email)
		}
		existing, err := s.store.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, ErrEmailExists
		}
		req.Email = &email
	}

	if err := s.store.UpdateProfile(ctx, id, req.Email, req.Name); err != nil {
		return nil, err
	}
	// Cached principals carry the email
	s.resolver.Invalidate(ctx, id)
	return s.Get(ctx, id)
}

// SetRoles replaces the target's role set. The resolver cache entry is
// evicted so the new roles bind immediately, unexpired tokens included.
func (s *Service) SetRoles(ctx context.Context, id int64, roles []string) (*User, error) {
	for _, role := range roles {
		if !validRoles[role] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
		}
	}
	normalized := auth.NormalizeRoles(roles).Strings()

	if err := s.store.UpdateRoles(ctx, id, normalized); err != nil {
		return nil, err
	}
	s.resolver.Invalidate(ctx, id)
	return s.Get(ctx, id)
}

// ChangePassword sets a new password for the target
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, id, hash)
}

// Delete deactivates the target and deauthorizes any outstanding tokens by
// evicting the cached principal.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.resolver.Invalidate(ctx, id)
	return nil
}
