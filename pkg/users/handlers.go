package users

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/praxishq/praxis/pkg/audit"
	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/httputil"
	"github.com/praxishq/praxis/pkg/middleware"
	"github.com/praxishq/praxis/pkg/observability"
)

// Handlers exposes user management over HTTP. Every privilege-sensitive
// operation re-resolves the caller's roles from storage; token roles are only
// a hint and never authorize cross-subject mutations.
type Handlers struct {
	service  *Service
	resolver *auth.Resolver
	audit    audit.Recorder
	metrics  *observability.Metrics
}

// NewHandlers creates user handlers. audit and metrics may be nil.
func NewHandlers(service *Service, resolver *auth.Resolver, auditLog audit.Recorder, metrics *observability.Metrics) *Handlers {
	return &Handlers{service: service, resolver: resolver, audit: auditLog, metrics: metrics}
}

// RegisterPublicRoutes registers routes reachable without a token
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/users", h.Register).Methods(http.MethodPost)
}

// RegisterRoutes registers routes behind the authenticator
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users", h.List).Methods(http.MethodGet)
	router.HandleFunc("/users/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/users/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/users/{id:[0-9]+}/roles", h.SetRoles).Methods(http.MethodPut)
	router.HandleFunc("/users/{id:[0-9]+}/password", h.ChangePassword).Methods(http.MethodPut)
	router.HandleFunc("/users/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

// resolveActor re-derives the caller's current principal from storage. A
// caller whose account vanished or was deactivated since the token was issued
// is deauthorized here, regardless of what the token says.
func (h *Handlers) resolveActor(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	tokenPrincipal, ok := middleware.RequirePrincipal(w, r)
	if !ok {
		return nil, false
	}

	actor, err := h.resolver.Resolve(r.Context(), tokenPrincipal.SubjectID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to resolve principal")
		httputil.WriteInternalError(w, errors.New("failed to resolve principal"))
		return nil, false
	}
	if actor == nil {
		httputil.WriteForbidden(w, auth.CodeForbidden, "account is no longer active")
		return nil, false
	}
	// Resolution is identity-scoped; the impersonation marker rides the token
	actor.ImpersonatorID = tokenPrincipal.ImpersonatorID
	return actor, true
}

// decide enforces a policy decision, recording it to metrics either way
func (h *Handlers) decide(w http.ResponseWriter, d auth.Decision) bool {
	if h.metrics != nil {
		h.metrics.RecordPolicyDecision(d.Allowed, d.Reason)
	}
	if !d.Allowed {
		httputil.WriteForbidden(w, auth.CodeForbidden, "insufficient permissions: "+d.Reason)
		return false
	}
	return true
}

// Register handles POST /users
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			httputil.WriteConflict(w, "email is already registered")
		case errors.Is(err, auth.ErrPasswordTooShort):
			httputil.WriteBadRequest(w, err.Error())
		default:
			httputil.WriteInternalError(w, errors.New("failed to create user"))
		}
		return
	}
	httputil.WriteCreated(w, user)
}

// List handles GET /users. Listing other accounts is an admin operation.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !auth.IsCompanyAdmin(actor) && !auth.IsSiteAdmin(actor) {
		if !h.decide(w, auth.Decision{Allowed: false, Reason: auth.ReasonNotAdmin}) {
			return
		}
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 50)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to list users"))
		return
	}
	httputil.WriteSuccess(w, result)
}

// Get handles GET /users/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !auth.IsSelfOrAdmin(actor, id) {
		if !h.decide(w, auth.Decision{Allowed: false, Reason: auth.ReasonNotAdmin}) {
			return
		}
	}

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to get user"))
		return
	}
	httputil.WriteSuccess(w, user)
}

// Update handles PUT /users/{id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !auth.IsSelfOrAdmin(actor, id) {
		if !h.decide(w, auth.Decision{Allowed: false, Reason: auth.ReasonNotAdmin}) {
			return
		}
	}

	var req UpdateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.WriteNotFoundError(w, "user not found")
		case errors.Is(err, ErrEmailExists):
			httputil.WriteConflict(w, "email is already registered")
		default:
			httputil.WriteBadRequest(w, err.Error())
		}
		return
	}
	httputil.WriteSuccess(w, user)
}

// SetRoles handles PUT /users/{id}/roles. Site Admin only, enforced against
// the actor's current roles so a demoted admin loses this immediately.
func (h *Handlers) SetRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !h.decide(w, auth.CanModifyRoles(actor)) {
		return
	}

	var req UpdateRolesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.service.SetRoles(r.Context(), id, req.Roles)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.WriteNotFoundError(w, "user not found")
		case errors.Is(err, ErrInvalidRole):
			httputil.WriteBadRequest(w, err.Error())
		default:
			httputil.WriteInternalError(w, errors.New("failed to update roles"))
		}
		return
	}

	if h.audit != nil {
		h.audit.Record(r.Context(), audit.Event{
			ActorID:    &actor.SubjectID,
			Action:     audit.ActionRoleChange,
			TargetType: "user",
			TargetID:   &id,
		})
	}
	httputil.WriteSuccess(w, user)
}

// ChangePassword handles PUT /users/{id}/password
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !auth.IsSelfOrAdmin(actor, id) {
		if !h.decide(w, auth.Decision{Allowed: false, Reason: auth.ReasonNotAdmin}) {
			return
		}
	}

	var req ChangePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), id, req.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordTooShort):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, ErrNotFound):
			httputil.WriteNotFoundError(w, "user not found")
		default:
			httputil.WriteInternalError(w, errors.New("failed to change password"))
		}
		return
	}
	httputil.WriteNoContent(w)
}

// Delete handles DELETE /users/{id}. Site Admin only, and never self: an
// admin cannot remove their own account through this endpoint.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !h.decide(w, auth.CanDeleteUser(actor, id)) {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete user"))
		return
	}

	if h.audit != nil {
		h.audit.Record(r.Context(), audit.Event{
			ActorID:    &actor.SubjectID,
			Action:     audit.ActionUserDelete,
			TargetType: "user",
			TargetID:   &id,
		})
	}
	httputil.WriteNoContent(w)
}
