package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/appid"
	"github.com/jmail/domaincheck/internal/config"
	"github.com/jmail/domaincheck/internal/observability"
	"github.com/jmail/domaincheck/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	checkDomain := &handlers.CheckDomainHandler{
		Verifier:      s.deps.Verifier,
		ExposeDetails: !s.cfg.IsProduction(),
	}
	auth := &handlers.OAuthHandler{
		Client:        s.deps.OAuth,
		SecureCookie:  s.cfg.IsProduction(),
		ExposeDetails: s.cfg.Environment == config.EnvDevelopment,
	}
	if s.deps.Tokens != nil {
		auth.Tokens = s.deps.Tokens
	}

	s.router.Get("/", handlers.IndexHandler)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/check-domain", checkDomain.ServeHTTP)
		r.Get("/auth", auth.Authorize)
		r.Get("/auth/callback", auth.Callback)
	})

	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)
	s.router.Get("/health/startup", s.health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes POST /admin/signal when <PREFIX>ADMIN_TOKEN is set.
func (s *Server) registerAdminEndpoint() {
	_, _, envPrefix := appid.Names(context.Background())
	logger := observability.ServerLogger

	adminToken := os.Getenv(envPrefix + "ADMIN_TOKEN")
	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + envPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
