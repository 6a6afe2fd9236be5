package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Handlers receive a *Metrics rather
// than touching package-level state, so the sink can be swapped in tests.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthFailuresTotal      *prometheus.CounterVec
	PolicyDecisionsTotal   *prometheus.CounterVec
	LoginsTotal            *prometheus.CounterVec
	ImpersonationsTotal    prometheus.Counter
	PrincipalCacheHits     prometheus.Counter
	PrincipalCacheMisses   prometheus.Counter

	// Usage metrics
	APIUsageRecordedTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "praxis_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "praxis_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "praxis_auth_failures_total",
				Help: "Authentication failures by error code",
			},
			[]string{"code"},
		),
		PolicyDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "praxis_policy_decisions_total",
				Help: "Authorization policy decisions by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "praxis_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		ImpersonationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "praxis_impersonations_total",
				Help: "Impersonation sessions issued",
			},
		),
		PrincipalCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "praxis_principal_cache_hits_total",
				Help: "Principal resolver cache hits",
			},
		),
		PrincipalCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "praxis_principal_cache_misses_total",
				Help: "Principal resolver cache misses",
			},
		),
		APIUsageRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "praxis_api_usage_recorded_total",
				Help: "Metered API requests by company",
			},
			[]string{"company_id"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "praxis_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "praxis_db_connections_idle",
				Help: "Idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.PolicyDecisionsTotal,
		m.LoginsTotal,
		m.ImpersonationsTotal,
		m.PrincipalCacheHits,
		m.PrincipalCacheMisses,
		m.APIUsageRecordedTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthFailure records an authentication failure by error code
func (m *Metrics) RecordAuthFailure(code string) {
	m.AuthFailuresTotal.WithLabelValues(code).Inc()
}

// RecordPolicyDecision records an authorization decision
func (m *Metrics) RecordPolicyDecision(allowed bool, reason string) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.PolicyDecisionsTotal.WithLabelValues(outcome, reason).Inc()
}
