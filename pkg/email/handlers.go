package email

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/httputil"
	"github.com/praxishq/praxis/pkg/middleware"
	"github.com/praxishq/praxis/pkg/observability"
)

// TemplateRequest is the payload for creating or updating a template
type TemplateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// PreviewRequest is the payload for rendering a template without sending
type PreviewRequest struct {
	Data map[string]string `json:"data"`
}

// SendRequest is the payload for rendering and delivering a template
type SendRequest struct {
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

// Handlers exposes template management over HTTP. All routes are Site Admin
// only; templates are platform-level configuration, not tenant data.
type Handlers struct {
	service  *Service
	resolver *auth.Resolver
	metrics  *observability.Metrics
}

// NewHandlers creates email handlers. metrics may be nil.
func NewHandlers(service *Service, resolver *auth.Resolver, metrics *observability.Metrics) *Handlers {
	return &Handlers{service: service, resolver: resolver, metrics: metrics}
}

// RegisterRoutes registers routes behind the authenticator
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/email/templates", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/email/templates", h.List).Methods(http.MethodGet)
	router.HandleFunc("/email/templates/{name}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/email/templates/{name}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/email/templates/{name}", h.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/email/templates/{name}/preview", h.Preview).Methods(http.MethodPost)
	router.HandleFunc("/email/templates/{name}/send", h.Send).Methods(http.MethodPost)
}

// requireSiteAdmin resolves the caller's current roles and enforces Site Admin
func (h *Handlers) requireSiteAdmin(w http.ResponseWriter, r *http.Request) bool {
	tokenPrincipal, ok := middleware.RequirePrincipal(w, r)
	if !ok {
		return false
	}
	actor, err := h.resolver.Resolve(r.Context(), tokenPrincipal.SubjectID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to resolve principal")
		httputil.WriteInternalError(w, errors.New("failed to resolve principal"))
		return false
	}
	if actor == nil {
		httputil.WriteForbidden(w, auth.CodeForbidden, "account is no longer active")
		return false
	}

	allowed := auth.IsSiteAdmin(actor)
	reason := auth.ReasonSiteAdmin
	if !allowed {
		reason = auth.ReasonNotSiteAdmin
	}
	if h.metrics != nil {
		h.metrics.RecordPolicyDecision(allowed, reason)
	}
	if !allowed {
		httputil.WriteForbidden(w, auth.CodeForbidden, "insufficient permissions: "+auth.ReasonNotSiteAdmin)
		return false
	}
	return true
}

// Create handles POST /email/templates
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	if !h.requireSiteAdmin(w, r) {
		return
	}
	var req TemplateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	t, err := h.service.Create(r.Context(), req.Name, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, ErrNameExists) {
			httputil.WriteConflict(w, "template name already exists")
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteCreated(w, t)
}

// List handles GET /email/templates
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	if !h.requireSiteAdmin(w, r) {
		return
	}
	result, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, errors.New("failed to list templates"))
		return
	}
	httputil.WriteSuccess(w, result)
}

// Get handles GET /email/templates/{name}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	if !h.requireSiteAdmin(w, r) {
		return
	}
	t, err := h.service.Get(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "template not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to get template"))
		return
	}
	httputil.WriteSuccess(w, t)
}

// Update handles PUT /email/templates/{name}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	if !h.requireSiteAdmin(w, r) {
		return
	}
	var req TemplateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	t, err := h.service.Update(r.Context(), mux.Vars(r)["name"], req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "template not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to update template"))
		return
	}
	httputil.WriteSuccess(w, t)
}

// Delete handles DELETE /email/templates/{name}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.requireSiteAdmin(w, r) {
		return
	}
	if err := h.service.Delete(r.Context(), mux.Vars(r)["name"]); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "template not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to delete template"))
		return
	}
	httputil.WriteNoContent(w)
}

// Preview handles POST /email/templates/{name}/preview
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	if !h.requireSiteAdmin(w, r) {
		return
	}
	var req PreviewRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	rendered, err := h.service.Preview(r.Context(), mux.Vars(r)["name"], req.Data)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "template not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to render template"))
		return
	}
	httputil.WriteSuccess(w, rendered)
}

// Send handles POST /email/templates/{name}/send
func (h *Handlers) Send(w http.ResponseWriter, r *http.Request) {
	if !h.requireSiteAdmin(w, r) {
		return
	}
	var req SendRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.To) == "" {
		httputil.WriteBadRequest(w, "recipient is required")
		return
	}

	if err := h.service.Send(r.Context(), mux.Vars(r)["name"], req.To, req.Data); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "template not found")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to send message"))
		return
	}
	httputil.WriteNoContent(w)
}
