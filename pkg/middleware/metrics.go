package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/praxishq/praxis/pkg/observability"
)

// HTTPMetrics records request counts and latencies. The path label uses the
// mux route template, not the raw URL, to keep label cardinality bounded.
func HTTPMetrics(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if template, err := route.GetPathTemplate(); err == nil {
					path = template
				}
			}
			metrics.ObserveHTTPRequest(r.Method, path, rec.status, time.Since(start))
		})
	}
}
