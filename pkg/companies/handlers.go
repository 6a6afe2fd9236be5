package companies

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

// Handlers exposes company management over HTTP
type Handlers struct {
	service  *Service
	resolver *auth.Resolver
	audit    audit.Recorder
	metrics  *observability.Metrics
}

// NewHandlers creates company handlers. audit and metrics may be nil.
func NewHandlers(service *Service, resolver *auth.Resolver, auditLog audit.Recorder, metrics *observability.Metrics) *Handlers {
	return &Handlers{service: service, resolver: resolver, audit: auditLog, metrics: metrics}
}

// RegisterRoutes registers routes behind the authenticator
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/companies", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/companies", h.List).Methods(http.MethodGet)
	router.HandleFunc("/companies/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/companies/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/companies/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/companies/{id:[0-9]+}/members", h.Members).Methods(http.MethodGet)
	router.HandleFunc("/companies/{id:[0-9]+}/members", h.AddMember).Methods(http.MethodPost)
	router.HandleFunc("/companies/{id:[0-9]+}/members/{userId:[0-9]+}", h.RemoveMember).Methods(http.MethodDelete)
}

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
	actor.ImpersonatorID = tokenPrincipal.ImpersonatorID
	return actor, true
}

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

// Create handles POST /companies. Tenant creation is Site Admin only.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !auth.IsSiteAdmin(actor) {
		if !h.decide(w, auth.Decision{Allowed: false, Reason: auth.ReasonNotSiteAdmin}) {
			return
		}
	}

	var req CreateCompanyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	company, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrNameExists) {
			httputil.WriteConflict(w, "company name already exists")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteCreated(w, company)
}

// List handles GET /companies. Listing tenants is an admin operation.
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
		httputil.WriteInternalError(w, errors.New("failed to list companies"))
		return
	}
	httputil.WriteSuccess(w, result)
}

// Get handles GET /companies/{id}. Visible to admins and to the company's
// own members.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}

	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "company not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to get company"))
		return
	}

	memberIDs, err := h.service.MemberIDs(r.Context(), id)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to get company"))
		return
	}
	if !h.decide(w, auth.CanViewCompany(actor, memberIDs)) {
		return
	}
	httputil.WriteSuccess(w, company)
}

// Update handles PUT /companies/{id}. Admins may rename; plain members may not.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !auth.IsCompanyAdmin(actor) && !auth.IsSiteAdmin(actor) {
		if !h.decide(w, auth.Decision{Allowed: false, Reason: auth.ReasonNotAdmin}) {
			return
		}
	}

	var req UpdateCompanyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	company, err := h.service.Rename(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.WriteNotFoundError(w, "company not found")
		case errors.Is(err, ErrNameExists):
			httputil.WriteConflict(w, "company name already exists")
		default:
			httputil.WriteBadRequest(w, err.Error())
		}
		return
	}
	httputil.WriteSuccess(w, company)
}

// Delete handles DELETE /companies/{id}. Strictly Site Admin; company admins
// may read and update but never delete.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !h.decide(w, auth.CanDeleteCompany(actor)) {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "company not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete company"))
		return
	}

	if h.audit != nil {
		h.audit.Record(r.Context(), audit.Event{
			ActorID:    &actor.SubjectID,
			Action:     audit.ActionCompanyDelete,
			TargetType: "company",
			TargetID:   &id,
		})
	}
	httputil.WriteNoContent(w)
}

// AddMemberRequest is the payload for POST /companies/{id}/members
type AddMemberRequest struct {
	UserID int64 `json:"user_id"`
}

// AddMember handles POST /companies/{id}/members. Moving a user between
// tenants is an admin operation.
func (h *Handlers) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !auth.IsCompanyAdmin(actor) && !auth.IsSiteAdmin(actor) {
		if !h.decide(w, auth.Decision{Allowed: false, Reason: auth.ReasonNotAdmin}) {
			return
		}
	}

	var req AddMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	if err := h.service.AddMember(r.Context(), id, req.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "company or user not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to add member"))
		return
	}
	httputil.WriteNoContent(w)
}

// RemoveMember handles DELETE /companies/{id}/members/{userId}
func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}
	if !auth.IsCompanyAdmin(actor) && !auth.IsSiteAdmin(actor) {
		if !h.decide(w, auth.Decision{Allowed: false, Reason: auth.ReasonNotAdmin}) {
			return
		}
	}

	if err := h.service.RemoveMember(r.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "membership not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to remove member"))
		return
	}
	httputil.WriteNoContent(w)
}

// Members handles GET /companies/{id}/members
func (h *Handlers) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	actor, ok := h.resolveActor(w, r)
	if !ok {
		return
	}

	memberIDs, err := h.service.MemberIDs(r.Context(), id)
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to list members"))
		return
	}
	if !h.decide(w, auth.CanViewCompany(actor, memberIDs)) {
		return
	}
	httputil.WriteSuccess(w, memberIDs)
}
