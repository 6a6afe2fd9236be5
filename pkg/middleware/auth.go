package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/contextkeys"
	"github.com/praxishq/praxis/pkg/httputil"
	"github.com/praxishq/praxis/pkg/observability"
)

// Authenticator is the request gate: it extracts the bearer token, decodes it
// through the token codec, and attaches the resulting Principal to the
// request context. Any transition failure rejects the request before it
// reaches a handler.
type Authenticator struct {
	codec   *auth.Codec
	metrics *observability.Metrics
}

// NewAuthenticator creates the authentication middleware. metrics may be nil.
func NewAuthenticator(codec *auth.Codec, metrics *observability.Metrics) *Authenticator {
	return &Authenticator{codec: codec, metrics: metrics}
}

// Handler wraps an HTTP handler with authentication
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Re-entrancy: if an earlier stage (a legacy compatibility layer,
		// or a test) already attached a principal, normalize and continue
		// rather than re-decoding.
		if existing := GetPrincipal(r); existing != nil {
			if len(existing.Roles) == 0 {
				existing.Roles = auth.NormalizeRoles(nil)
			}
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			a.reject(w, auth.CodeMissingToken, "missing authorization header")
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			a.reject(w, auth.CodeInvalidFormat, "authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := a.codec.Decode(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrSecretMissing) {
				observability.FromContext(r.Context()).Error("JWT signing secret is not configured")
				httputil.WriteServerConfigError(w, "server authentication is misconfigured")
				return
			}
			a.reject(w, auth.CodeInvalidToken, "invalid or expired token")
			return
		}

		if claims.UserID == nil {
			a.reject(w, auth.CodeMissingID, "token has no subject id")
			return
		}
		if *claims.UserID <= 0 {
			a.reject(w, auth.CodeInvalidID, "token subject id is not a positive integer")
			return
		}

		principal := claims.Principal()
		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) reject(w http.ResponseWriter, code, message string) {
	if a.metrics != nil {
		a.metrics.RecordAuthFailure(code)
	}
	httputil.WriteUnauthorized(w, code, message)
}

// GetPrincipal extracts the authenticated principal from a request, or nil
func GetPrincipal(r *http.Request) *auth.Principal {
	value := r.Context().Value(contextkeys.PrincipalKey)
	if value == nil {
		return nil
	}
	principal, ok := value.(*auth.Principal)
	if !ok {
		return nil
	}
	return principal
}

// RequirePrincipal extracts the principal or writes a 401. Routes behind
// Authenticator always have one; this guards handlers that are also mounted
// on unauthenticated routers.
func RequirePrincipal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p := GetPrincipal(r)
	if p == nil {
		httputil.WriteUnauthorized(w, auth.CodeMissingToken, "authentication required")
		return nil, false
	}
	return p, true
}
