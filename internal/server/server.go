package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/config"
	"github.com/jmail/domaincheck/internal/core/store"
	apperrors "github.com/jmail/domaincheck/internal/errors"
	"github.com/jmail/domaincheck/internal/observability"
	"github.com/jmail/domaincheck/internal/server/handlers"
	servermw "github.com/jmail/domaincheck/internal/server/middleware"
)

// Deps are the collaborators behind the API routes. Nil fields leave the
// matching routes answering with their configured failure responses.
type Deps struct {
	Verifier handlers.DomainVerifier
	OAuth    handlers.Authenticator
	Tokens   store.TokenStore
	// Version is reported by /health.
	Version string
}

// Server is the HTTP front end.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	deps   Deps
	health *handlers.HealthManager
}

// New builds the router for cfg and deps.
func New(cfg config.ServerConfig, deps Deps) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	// RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	health := handlers.NewHealthManager(deps.Version)
	if deps.Tokens != nil {
		health.RegisterChecker("token_store", handlers.CheckerFunc(deps.Tokens.Ping))
	}

	s := &Server{
		router: r,
		cfg:    cfg,
		deps:   deps,
		health: health,
	}
	s.registerRoutes()
	return s
}

// Addr is the listen address derived from the server config.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start listens until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	addr := s.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  orDefault(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(s.cfg.IdleTimeout, 120*time.Second),
	}

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Starting HTTP server",
			zap.String("addr", addr),
			zap.String("environment", s.cfg.Environment))
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Health returns the manager behind the /health routes.
func (s *Server) Health() *handlers.HealthManager {
	return s.health
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
