package usage

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/httputil"
	"github.com/praxishq/praxis/pkg/middleware"
	"github.com/praxishq/praxis/pkg/observability"
)

// Handlers exposes usage reporting over HTTP
type Handlers struct {
	service  *Service
	resolver *auth.Resolver
	metrics  *observability.Metrics
}

// NewHandlers creates usage handlers. metrics may be nil.
func NewHandlers(service *Service, resolver *auth.Resolver, metrics *observability.Metrics) *Handlers {
	return &Handlers{service: service, resolver: resolver, metrics: metrics}
}

// RegisterRoutes registers routes behind the authenticator
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/usage", h.Report).Methods(http.MethodGet)
}

// Report handles GET /usage. The scope is derived from the caller's current
// roles, never requested by the client: admins get their company, site
// admins get everything.
func (h *Handlers) Report(w http.ResponseWriter, r *http.Request) {
	tokenPrincipal, ok := middleware.RequirePrincipal(w, r)
	if !ok {
		return
	}
	actor, err := h.resolver.Resolve(r.Context(), tokenPrincipal.SubjectID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to resolve principal")
		httputil.WriteInternalError(w, errors.New("failed to resolve principal"))
		return
	}
	if actor == nil {
		httputil.WriteForbidden(w, auth.CodeForbidden, "account is no longer active")
		return
	}

	days, err := httputil.ParseQueryInt(r, "days", 7)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if days <= 0 || days > 90 {
		days = 7
	}
	since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour).Truncate(time.Hour)

	report, decision, err := h.service.Report(r.Context(), actor, since)
	if h.metrics != nil {
		h.metrics.RecordPolicyDecision(decision.Allowed, decision.Reason)
	}
	if !decision.Allowed {
		httputil.WriteForbidden(w, auth.CodeForbidden, "insufficient permissions: "+decision.Reason)
		return
	}
	if err != nil {
		if errors.Is(err, ErrNoCompany) {
			httputil.WriteBadRequest(w, "caller has no company to report usage for")
			return
		}
		httputil.WriteInternalError(w, errors.New("failed to build usage report"))
		return
	}
	httputil.WriteSuccess(w, report)
}
