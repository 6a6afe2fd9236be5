package auth

import "sort"

// Role is a role tag attached to a user. The vocabulary is closed: User,
// Admin (company-scoped), and Site Admin.
type Role string

const (
	RoleUser      Role = "User"
	RoleAdmin     Role = "Admin"
	RoleSiteAdmin Role = "Site Admin"
)

// RoleSet is a set of role tags with O(1) membership tests
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from role tags
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// NormalizeRoles converts raw role strings into a RoleSet, defaulting to
// {User} when the input is empty. This is the single deliberate leniency in
// claim handling: a missing or malformed roles claim downgrades to the least
// privileged set instead of rejecting the token.
func NormalizeRoles(roles []string) RoleSet {
	if len(roles) == 0 {
		return NewRoleSet(RoleUser)
	}
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[Role(r)] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the role
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Strings returns the roles as a sorted string slice for stable serialization
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// Principal is the authenticated identity attached to a request. It is never
// persisted; it is reconstructed per request from a verified token, or
// re-derived from storage by the Resolver.
type Principal struct {
	SubjectID int64  `json:"subjectId"`
	Email     string `json:"email"`
	Roles     RoleSet `json:"-"`

	// ImpersonatorID is the subject ID of the site admin who minted this
	// token; set only on impersonation-derived principals.
	ImpersonatorID *int64 `json:"impersonatorId,omitempty"`
}

// IsImpersonated reports whether this principal came from an impersonation token
func (p *Principal) IsImpersonated() bool {
	return p.ImpersonatorID != nil
}

// Clone returns an independent copy. The Resolver hands out clones of its
// cached entries so a caller may attach per-request state, like the
// impersonator id from the token, without that write being visible to any
// other request.
func (p *Principal) Clone() *Principal {
	c := *p
	c.Roles = make(RoleSet, len(p.Roles))
	for r := range p.Roles {
		c.Roles[r] = struct{}{}
	}
	return &c
}
