// Package api assembles the HTTP surface: routing, middleware ordering, and
// the authentication endpoints.
package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/praxishq/praxis/pkg/auth"
	"github.com/praxishq/praxis/pkg/companies"
	"github.com/praxishq/praxis/pkg/config"
	"github.com/praxishq/praxis/pkg/email"
	"github.com/praxishq/praxis/pkg/middleware"
	"github.com/praxishq/praxis/pkg/observability"
	"github.com/praxishq/praxis/pkg/usage"
	"github.com/praxishq/praxis/pkg/users"
)

// Dependencies is everything the server mounts. UsageMeter and Email may be
// nil when the backing store is not configured.
type Dependencies struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Codec   *auth.Codec

	Auth      *AuthHandlers
	Users     *users.Handlers
	Companies *companies.Handlers
	Usage     *usage.Handlers
	Email     *email.Handlers

	UsageMeter *middleware.UsageMeter
}

// Server is the API HTTP server
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	logger     *observability.Logger
}

// NewServer builds the router and the underlying http.Server.
//
// Two sibling subrouters share the /api/v1 prefix: the public one carries
// registration and login, the protected one carries everything else behind
// the authenticator and the usage meter.
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	router := mux.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RequestLogger(deps.Logger),
		middleware.HTTPMetrics(deps.Metrics),
	)

	public := router.PathPrefix("/api/v1").Subrouter()
	deps.Auth.RegisterPublicRoutes(public)
	deps.Users.RegisterPublicRoutes(public)

	protected := router.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.NewAuthenticator(deps.Codec, deps.Metrics).Handler)
	if deps.UsageMeter != nil {
		protected.Use(deps.UsageMeter.Handler)
	}
	deps.Auth.RegisterRoutes(protected)
	deps.Users.RegisterRoutes(protected)
	deps.Companies.RegisterRoutes(protected)
	deps.Usage.RegisterRoutes(protected)
	if deps.Email != nil {
		deps.Email.RegisterRoutes(protected)
	}

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: deps.Logger,
	}
}

// Router exposes the assembled router, mainly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// HTTPServer exposes the underlying http.Server for shutdown registration
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server: %w", err)
	}
	return nil
}
