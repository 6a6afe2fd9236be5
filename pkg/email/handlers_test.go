package email

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/contextkeys"
	"github.com/praxishq/praxis/pkg/observability"
)

type stubLookup struct {
	subject *auth.Subject
}

func (s *stubLookup) LookupSubject(ctx context.Context, id int64) (*auth.Subject, error) {
	return s.subject, nil
}

func newTestHandlers(t *testing.T, roles []string) (*mux.Router, *observability.Metrics, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	lookup := &stubLookup{subject: &auth.Subject{ID: 1, Email: "a@example.com", Roles: roles, Active: true}}
	resolver := auth.NewResolver(lookup, 0, 0, nil)
	h := NewHandlers(NewService(NewStore(db), &LogSender{}), resolver, metrics)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router, metrics, mock
}

func doList(router *mux.Router) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/email/templates", nil)
	principal := &auth.Principal{SubjectID: 1, Roles: auth.NewRoleSet(auth.RoleUser)}
	req = req.WithContext(contextkeys.WithPrincipal(req.Context(), principal))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_DenyRecordsDenyReason(t *testing.T) {
	router, metrics, _ := newTestHandlers(t, []string{"Admin"})

	rec := doList(router)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	if got := testutil.ToFloat64(metrics.PolicyDecisionsTotal.WithLabelValues("deny", auth.ReasonNotSiteAdmin)); got != 1 {
		t.Errorf("deny/%s = %v, want 1", auth.ReasonNotSiteAdmin, got)
	}
	if got := testutil.ToFloat64(metrics.PolicyDecisionsTotal.WithLabelValues("deny", auth.ReasonSiteAdmin)); got != 0 {
		t.Errorf("deny/%s = %v, want 0", auth.ReasonSiteAdmin, got)
	}
}

func TestHandlers_AllowRecordsSiteAdminReason(t *testing.T) {
	router, metrics, mock := newTestHandlers(t, []string{"Site Admin"})
	mock.ExpectQuery("SELECT (.+) FROM email_templates").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "subject", "body", "created_at", "updated_at"}))

	rec := doList(router)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := testutil.ToFloat64(metrics.PolicyDecisionsTotal.WithLabelValues("allow", auth.ReasonSiteAdmin)); got != 1 {
		t.Errorf("allow/%s = %v, want 1", auth.ReasonSiteAdmin, got)
	}
}
