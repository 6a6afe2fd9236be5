package auth

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAdminNotFound means the impersonating admin no longer resolves to
	// an existing subject.
	ErrAdminNotFound = errors.New("auth: impersonating admin not found")

	// ErrTargetNotFound means the impersonation target does not exist
	ErrTargetNotFound = errors.New("auth: impersonation target not found")

	// ErrImpersonationDenied means the acting principal's resolved roles do
	// not permit impersonation.
	ErrImpersonationDenied = errors.New("auth: impersonation denied")

	// ErrTargetSiteAdmin means the target holds Site Admin; impersonating
	// another site admin is blocked.
	ErrTargetSiteAdmin = errors.New("auth: cannot impersonate a site admin")
)

// ImpersonationIssuer lets a Site Admin obtain a token that authenticates as
// another user while staying traceable to the admin through the
// impersonatorId claim. Issued tokens always use the short TTL tier.
type ImpersonationIssuer struct {
	codec    *Codec
	resolver *Resolver
}

// NewImpersonationIssuer creates an issuer
func NewImpersonationIssuer(codec *Codec, resolver *Resolver) *ImpersonationIssuer {
	return &ImpersonationIssuer{codec: codec, resolver: resolver}
}

// Impersonate mints a token carrying the target's identity plus the admin's
// id as impersonatorId, and returns it with the target's sanitized profile.
//
// Both subjects are re-resolved from storage: the admin check is a defensive
// re-check even though the policy already gated entry, and the target's
// current roles (not any token snapshot) feed the site-admin guard.
func (i *ImpersonationIssuer) Impersonate(ctx context.Context, adminSubjectID, targetSubjectID int64) (string, *Principal, error) {
	admin, err := i.resolver.Resolve(ctx, adminSubjectID)
	if err != nil {
		return "", nil, fmt.Errorf("resolving admin: %w", err)
	}
	if admin == nil {
		return "", nil, ErrAdminNotFound
	}

	target, err := i.resolver.Resolve(ctx, targetSubjectID)
	if err != nil {
		return "", nil, fmt.Errorf("resolving target: %w", err)
	}
	if target == nil {
		return "", nil, ErrTargetNotFound
	}

	if d := CanImpersonateTarget(admin, target); !d.Allowed {
		if d.Reason == ReasonTargetSiteAdmin {
			return "", nil, ErrTargetSiteAdmin
		}
		return "", nil, ErrImpersonationDenied
	}

	claims := NewClaims(target.SubjectID, target.Email, target.Roles.Strings())
	adminID := adminSubjectID
	claims.ImpersonatorID = &adminID

	token, err := i.codec.Encode(claims, i.codec.ImpersonationTTL())
	if err != nil {
		return "", nil, err
	}

	impersonated := *target
	impersonated.ImpersonatorID = &adminID
	return token, &impersonated, nil
}
