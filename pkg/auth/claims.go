package auth

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// RoleList tolerates a malformed roles claim: anything that is not a JSON
// array of strings decodes as empty (later normalized to {User}) rather than
// failing the whole token. The leniency is scoped to this one field; every
// other malformed claim fails the token closed.
type RoleList []string

func (rl *RoleList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err != nil {
		*rl = nil
		return nil
	}
	*rl = ss
	return nil
}

// Claims is the signed token payload.
//
// UserID is a pointer so the authenticator can distinguish an absent subject
// id (AUTH_MISSING_ID) from a present-but-invalid one (AUTH_INVALID_ID).
type Claims struct {
	jwt.RegisteredClaims
	UserID         *int64   `json:"userId,omitempty"`
	Email          string   `json:"email,omitempty"`
	Roles          RoleList `json:"roles,omitempty"`
	ImpersonatorID *int64   `json:"impersonatorId,omitempty"`
}

// NewClaims builds the claim set for a subject
func NewClaims(subjectID int64, email string, roles []string) Claims {
	id := subjectID
	return Claims{
		UserID: &id,
		Email:  email,
		Roles:  RoleList(roles),
	}
}

// Principal converts verified claims into a Principal, normalizing roles
func (c *Claims) Principal() *Principal {
	var id int64
	if c.UserID != nil {
		id = *c.UserID
	}
	return &Principal{
		SubjectID:      id,
		Email:          c.Email,
		Roles:          NormalizeRoles([]string(c.Roles)),
		ImpersonatorID: c.ImpersonatorID,
	}
}
