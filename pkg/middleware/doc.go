// Package middleware provides the HTTP middleware chain: request IDs,
// request logging, Prometheus metrics, bearer-token authentication, and
// per-company usage metering.
//
// # Ordering
//
// The chain is order-sensitive (outer to inner):
//
//  1. RequestID - assigns the request ID used by logging and audit
//  2. RequestLogger - attaches the logger to context
//  3. HTTPMetrics - observes every request, authenticated or not
//  4. Authenticator - attaches the Principal; rejects bad tokens
//  5. UsageMeter - meters authenticated requests per company
//
// UsageMeter silently skips requests with no principal in context, so
// running it before Authenticator disables metering rather than failing.
package middleware
