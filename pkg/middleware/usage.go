package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/praxishq/praxis/pkg/async"
	"github.com/praxishq/praxis/pkg/observability"
)

// UsageRecorder counts a metered API request against a company
type UsageRecorder interface {
	RecordRequest(ctx context.Context, companyID int64) error
}

// CompanyLookup maps a subject to their company. Returns 0 when the subject
// has no company.
type CompanyLookup interface {
	CompanyIDForSubject(ctx context.Context, subjectID int64) (int64, error)
}

// UsageMeter meters authenticated API requests per company. Recording is
// fire-and-forget off the request path; metering must never add latency or
// turn a working request into a failure.
//
// Ordering: must run after Authenticator (needs the principal in context).
type UsageMeter struct {
	recorder  UsageRecorder
	companies CompanyLookup
	metrics   *observability.Metrics
}

// NewUsageMeter creates the usage metering middleware. metrics may be nil.
func NewUsageMeter(recorder UsageRecorder, companies CompanyLookup, metrics *observability.Metrics) *UsageMeter {
	return &UsageMeter{recorder: recorder, companies: companies, metrics: metrics}
}

// Handler wraps an HTTP handler with usage metering
func (m *UsageMeter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := GetPrincipal(r); p != nil {
			subjectID := p.SubjectID
			async.SafeGo(r.Context(), 5*time.Second, "usage metering", func(ctx context.Context) error {
				companyID, err := m.companies.CompanyIDForSubject(ctx, subjectID)
				if err != nil || companyID == 0 {
					return err
				}
				if m.metrics != nil {
					m.metrics.APIUsageRecordedTotal.WithLabelValues(strconv.FormatInt(companyID, 10)).Inc()
				}
				return m.recorder.RecordRequest(ctx, companyID)
			})
		}
		next.ServeHTTP(w, r)
	})
}
