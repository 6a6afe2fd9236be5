package auth

// Authentication and authorization error codes surfaced to clients. Resource
// handlers translate these to HTTP status (401 for AUTH_* token failures,
// 403 for FORBIDDEN, 500 for SERVER_CONFIG_ERROR).
const (
	CodeMissingToken  = "AUTH_MISSING_TOKEN"
	CodeInvalidFormat = "AUTH_INVALID_FORMAT"
	CodeMissingID     = "AUTH_MISSING_ID"
	CodeInvalidID     = "AUTH_INVALID_ID"
	CodeInvalidToken  = "AUTH_INVALID_TOKEN"
	CodeForbidden     = "FORBIDDEN"
	CodeConfigError   = "SERVER_CONFIG_ERROR"
)

// Reason codes attached to policy decisions
const (
	ReasonSelf                 = "self"
	ReasonSiteAdmin            = "site_admin"
	ReasonCompanyAdmin         = "company_admin"
	ReasonCompanyMember        = "company_member"
	ReasonNotAdmin             = "not_admin"
	ReasonNotSiteAdmin         = "not_site_admin"
	ReasonNotMember            = "not_member"
	ReasonSelfDeletionDenied   = "self_deletion_forbidden"
	ReasonTargetSiteAdmin      = "target_is_site_admin"
	ReasonNoUsageScope         = "no_usage_scope"
)

// Decision is an authorization outcome with a machine-readable reason code
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// IsSiteAdmin reports whether the principal holds the Site Admin role
func IsSiteAdmin(p *Principal) bool {
	return p != nil && p.Roles.Has(RoleSiteAdmin)
}

// IsCompanyAdmin reports whether the principal holds the company-scoped Admin
// role. Distinct from Site Admin: a company admin may read and update within
// their company but never delete companies, change roles, or impersonate.
func IsCompanyAdmin(p *Principal) bool {
	return p != nil && p.Roles.Has(RoleAdmin)
}

// IsSelfOrAdmin reports whether the principal is the target subject or holds
// an admin role. Holds for the self case with any role set, including empty.
func IsSelfOrAdmin(p *Principal, targetSubjectID int64) bool {
	if p == nil {
		return false
	}
	if p.SubjectID == targetSubjectID {
		return true
	}
	return IsCompanyAdmin(p) || IsSiteAdmin(p)
}

// CanModifyRoles: role mutation is Site-Admin-exclusive regardless of any
// other privilege.
func CanModifyRoles(p *Principal) Decision {
	if IsSiteAdmin(p) {
		return allow(ReasonSiteAdmin)
	}
	return deny(ReasonNotSiteAdmin)
}

// CanDeleteUser: Site Admin only, and self-deletion is forbidden even for
// Site Admins.
func CanDeleteUser(p *Principal, targetSubjectID int64) Decision {
	if !IsSiteAdmin(p) {
		return deny(ReasonNotSiteAdmin)
	}
	if p.SubjectID == targetSubjectID {
		return deny(ReasonSelfDeletionDenied)
	}
	return allow(ReasonSiteAdmin)
}

// CanDeleteCompany: strictly Site Admin; company admins may read and update
// but never delete.
func CanDeleteCompany(p *Principal) Decision {
	if IsSiteAdmin(p) {
		return allow(ReasonSiteAdmin)
	}
	return deny(ReasonNotSiteAdmin)
}

// CanViewCompany allows site admins, company admins, and members of the
// company identified by its member id set.
func CanViewCompany(p *Principal, companyMemberIDs []int64) Decision {
	if IsSiteAdmin(p) {
		return allow(ReasonSiteAdmin)
	}
	if IsCompanyAdmin(p) {
		return allow(ReasonCompanyAdmin)
	}
	if p != nil {
		for _, id := range companyMemberIDs {
			if id == p.SubjectID {
				return allow(ReasonCompanyMember)
			}
		}
	}
	return deny(ReasonNotMember)
}

// UsageScope is the slice of usage data a principal may read
type UsageScope int

const (
	UsageScopeNone UsageScope = iota
	// UsageScopeCompany limits the aggregate to the principal's own company
	UsageScopeCompany
	// UsageScopeGlobal is the cross-tenant aggregate
	UsageScopeGlobal
)

// CanAccessUsageScope returns the widest scope the principal may read: Site
// Admin sees the global aggregate, company Admin only their own company's,
// and everyone else is denied.
func CanAccessUsageScope(p *Principal) (UsageScope, Decision) {
	if IsSiteAdmin(p) {
		return UsageScopeGlobal, allow(ReasonSiteAdmin)
	}
	if IsCompanyAdmin(p) {
		return UsageScopeCompany, allow(ReasonCompanyAdmin)
	}
	return UsageScopeNone, deny(ReasonNoUsageScope)
}

// CanImpersonate gates entry to the impersonation flow: strictly Site Admin.
// No other role, including company Admin, may impersonate.
func CanImpersonate(p *Principal) Decision {
	if IsSiteAdmin(p) {
		return allow(ReasonSiteAdmin)
	}
	return deny(ReasonNotSiteAdmin)
}

// CanImpersonateTarget additionally denies impersonating another Site Admin.
// Callers must pass the target's resolved (current) roles, not roles from a
// stale token.
func CanImpersonateTarget(p, target *Principal) Decision {
	if d := CanImpersonate(p); !d.Allowed {
		return d
	}
	if target != nil && target.Roles.Has(RoleSiteAdmin) {
		return deny(ReasonTargetSiteAdmin)
	}
	return allow(ReasonSiteAdmin)
}
