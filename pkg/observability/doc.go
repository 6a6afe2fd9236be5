// Package observability provides structured logging, Prometheus metrics,
// health checks, and graceful shutdown for the Praxis server.
//
// The Logger wraps stdlib slog with a JSON handler and context helpers so
// request-scoped fields (request ID) follow a request through its handlers.
// Metrics are registered against an injected *prometheus.Registry rather than
// the package default, keeping tests isolated.
package observability
