// Package auth implements the authentication and authorization core:
// JWT claim encoding/decoding, bcrypt credential verification, principal
// resolution against the system of record, pure authorization policy
// decisions, and role-scoped impersonation.
//
// # Two sources of truth for roles
//
// A token carries a snapshot of the subject's roles at issue time. Role
// changes must take effect without re-login, so privilege-escalating or
// destructive operations re-resolve the current roles through the Resolver
// instead of trusting the token's embedded roles. Token roles are acceptable
// only for same-subject, read-only checks. When the two disagree, resolved
// roles win.
//
// # Tokens are not revocable
//
// There is no denylist. A compromised or demoted-but-unexpired token remains
// usable for coarse identity until it expires; the Resolver re-check blunts
// it for anything sensitive, and impersonation tokens get a deliberately
// shorter TTL.
package auth
