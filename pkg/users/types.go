package users

import (
	"errors"
	"time"
)

var (
	// ErrNotFound means the user does not exist or is inactive
	ErrNotFound = errors.New("users: not found")

	// ErrEmailExists means the email is already registered
	ErrEmailExists = errors.New("users: email already registered")

	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("users: invalid credentials")

	// ErrInvalidRole means a role outside the known vocabulary was supplied
	ErrInvalidRole = errors.New("users: invalid role")
)

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CompanyID    *int64    `json:"company_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for creating a user
type RegisterRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	CompanyID *int64 `json:"company_id,omitempty"`
}

// UpdateUserRequest is the payload for updating profile fields
type UpdateUserRequest struct {
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
}

// UpdateRolesRequest is the payload for replacing a user's role set
type UpdateRolesRequest struct {
	Roles []string `json:"roles"`
}

// ChangePasswordRequest is the payload for setting a new password
type ChangePasswordRequest struct {
	Password string `json:"password"`
}
