package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/praxishq/praxis/pkg/audit"
	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/httputil"
	"github.com/praxishq/praxis/pkg/middleware"
	"github.com/praxishq/praxis/pkg/observability"
	"github.com/praxishq/praxis/pkg/users"
)

// LoginRequest is the payload for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the authenticated profile
type LoginResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

// ImpersonateRequest is the payload for POST /auth/impersonate
type ImpersonateRequest struct {
	UserID int64 `json:"user_id"`
}

// ImpersonateResponse carries the short-lived impersonation token and the
// identity it authenticates as
type ImpersonateResponse struct {
	Token string     `json:"token"`
	User  MeResponse `json:"user"`
}

// MeResponse is the caller's current identity as the server sees it
type MeResponse struct {
	SubjectID      int64    `json:"subjectId"`
	Email          string   `json:"email"`
	Roles          []string `json:"roles"`
	ImpersonatorID *int64   `json:"impersonatorId,omitempty"`
}

func meResponse(p *auth.Principal) MeResponse {
	return MeResponse{
		SubjectID:      p.SubjectID,
		Email:          p.Email,
		Roles:          p.Roles.Strings(),
		ImpersonatorID: p.ImpersonatorID,
	}
}

// AuthHandlers exposes login, identity introspection, and impersonation
type AuthHandlers struct {
	codec    *auth.Codec
	users    *users.Service
	resolver *auth.Resolver
	issuer   *auth.ImpersonationIssuer
	audit    audit.Recorder
	metrics  *observability.Metrics
}

// NewAuthHandlers creates the auth handlers. audit and metrics may be nil.
func NewAuthHandlers(codec *auth.Codec, userService *users.Service, resolver *auth.Resolver, issuer *auth.ImpersonationIssuer, auditLog audit.Recorder, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		codec:    codec,
		users:    userService,
		resolver: resolver,
		issuer:   issuer,
		audit:    auditLog,
		metrics:  metrics,
	}
}

// RegisterPublicRoutes registers routes reachable without a token
func (h *AuthHandlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
}

// RegisterRoutes registers routes behind the authenticator
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	router.HandleFunc("/auth/impersonate", h.Impersonate).Methods(http.MethodPost)
}

func (h *AuthHandlers) countLogin(result string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

// Login handles POST /auth/login. A successful login issues a token on the
// long TTL tier carrying the user's roles as of this moment.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			h.countLogin("failure")
			if h.audit != nil {
				h.audit.Record(r.Context(), audit.Event{
					Action: audit.ActionLoginFailed,
					Detail: req.Email,
				})
			}
			httputil.WriteUnauthorized(w, "", "invalid email or password")
			return
		}
		httputil.WriteInternalError(w, errors.New("login failed"))
		return
	}

	claims := auth.NewClaims(user.ID, user.Email, user.Roles)
	token, err := h.codec.Encode(claims, h.codec.LoginTTL())
	if err != nil {
		if errors.Is(err, auth.ErrSecretMissing) {
			observability.FromContext(r.Context()).Error("JWT signing secret is not configured")
			httputil.WriteServerConfigError(w, "server authentication is misconfigured")
			return
		}
		httputil.WriteInternalError(w, errors.New("login failed"))
		return
	}

	h.countLogin("success")
	if h.audit != nil {
		h.audit.Record(r.Context(), audit.Event{
			ActorID: &user.ID,
			Action:  audit.ActionLogin,
		})
	}
	httputil.WriteSuccess(w, LoginResponse{Token: token, User: user})
}

// Me handles GET /auth/me: the caller's identity with roles re-resolved from
// storage, so a promotion or demotion is visible here before re-login.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	tokenPrincipal, ok := middleware.RequirePrincipal(w, r)
	if !ok {
		return
	}

	current, err := h.resolver.Resolve(r.Context(), tokenPrincipal.SubjectID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to resolve principal")
		httputil.WriteInternalError(w, errors.New("failed to resolve principal"))
		return
	}
	if current == nil {
		httputil.WriteForbidden(w, auth.CodeForbidden, "account is no longer active")
		return
	}
	current.ImpersonatorID = tokenPrincipal.ImpersonatorID
	httputil.WriteSuccess(w, meResponse(current))
}

// Impersonate handles POST /auth/impersonate. Site Admin only, against the
// caller's resolved roles; the issued token is on the short TTL tier and
// carries the caller's id as impersonatorId.
func (h *AuthHandlers) Impersonate(w http.ResponseWriter, r *http.Request) {
	tokenPrincipal, ok := middleware.RequirePrincipal(w, r)
	if !ok {
		return
	}

	var req ImpersonateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		httputil.WriteBadRequest(w, "user_id must be a positive integer")
		return
	}

	token, impersonated, err := h.issuer.Impersonate(r.Context(), tokenPrincipal.SubjectID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTargetNotFound):
			httputil.WriteNotFoundError(w, "target user not found")
		case errors.Is(err, auth.ErrAdminNotFound):
			httputil.WriteNotFoundError(w, "impersonating admin not found")
		case errors.Is(err, auth.ErrTargetSiteAdmin):
			h.recordDecision(false, auth.ReasonTargetSiteAdmin)
			httputil.WriteForbidden(w, auth.CodeForbidden, "cannot impersonate a site admin")
		case errors.Is(err, auth.ErrImpersonationDenied):
			h.recordDecision(false, auth.ReasonNotSiteAdmin)
			httputil.WriteForbidden(w, auth.CodeForbidden, "insufficient permissions: "+auth.ReasonNotSiteAdmin)
		case errors.Is(err, auth.ErrSecretMissing):
			observability.FromContext(r.Context()).Error("JWT signing secret is not configured")
			httputil.WriteServerConfigError(w, "server authentication is misconfigured")
		default:
			httputil.WriteInternalError(w, errors.New("impersonation failed"))
		}
		return
	}

	h.recordDecision(true, auth.ReasonSiteAdmin)
	if h.metrics != nil {
		h.metrics.ImpersonationsTotal.Inc()
	}
	if h.audit != nil {
		adminID := tokenPrincipal.SubjectID
		targetID := req.UserID
		h.audit.Record(r.Context(), audit.Event{
			ActorID:    &adminID,
			Action:     audit.ActionImpersonate,
			TargetType: "user",
			TargetID:   &targetID,
		})
	}
	httputil.WriteSuccess(w, ImpersonateResponse{Token: token, User: meResponse(impersonated)})
}

func (h *AuthHandlers) recordDecision(allowed bool, reason string) {
	if h.metrics != nil {
		h.metrics.RecordPolicyDecision(allowed, reason)
	}
}
