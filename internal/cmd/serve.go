package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/appid"
	"github.com/jmail/domaincheck/internal/config"
	errwrap "github.com/jmail/domaincheck/internal/errors"
	"github.com/jmail/domaincheck/internal/metrics"
	"github.com/jmail/domaincheck/internal/observability"
	"github.com/jmail/domaincheck/internal/server"
	"github.com/jmail/domaincheck/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing POST /api/check-domain, the Google OAuth
endpoints, the check form on / and the health, version and metrics endpoints.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload configuration (log level and DKIM selectors)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "server host (default localhost)")
	serveCmd.Flags().IntP("port", "p", 0, "server port (default 3000)")
	serveCmd.Flags().String("environment", "", "development, production or test")
	serveCmd.Flags().Int("metrics-port", 0, "Prometheus exporter port (default 9090)")
	serveCmd.Flags().Bool("metrics", true, "enable the Prometheus exporter")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.environment", serveCmd.Flags().Lookup("environment"))
	_ = viper.BindPFlag("metrics.port", serveCmd.Flags().Lookup("metrics-port"))
	_ = viper.BindPFlag("metrics.enabled", serveCmd.Flags().Lookup("metrics"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "configuration invalid")
	}

	binaryName, _, _ := appid.Names(ctx)
	namespace := binaryName
	if identity := GetAppIdentity(); identity != nil {
		namespace = identity.TelemetryNamespace()
	}

	loggerOpts := func(c *config.Config) observability.ServerLoggerOptions {
		return observability.ServerLoggerOptions{
			Service:     binaryName,
			Level:       c.Logging.Level,
			Environment: c.Server.Environment,
			Namespace:   namespace,
			Profile:     c.Logging.Profile,
		}
	}
	if err := observability.InitServerLogger(loggerOpts(cfg)); err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "failed to initialize server logger")
	}
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(observability.MetricsOptions{
			Namespace: namespace,
			Service:   binaryName,
			Port:      cfg.Metrics.Port,
		}); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
		metrics.SetServerStartTime(time.Now().Unix())
	}

	tokens, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open token store", zap.Error(err))
		return errwrap.WrapDatabaseError(ctx, err, "token store unavailable")
	}

	verifier := newVerifier(cfg, logger)
	oauthClient := newOAuthClient(cfg)
	if !cfg.OAuth.Configured() {
		logger.Warn("OAuth client credentials not set; /api/auth will fail until they are configured")
	}

	srv := server.New(cfg.Server, server.Deps{
		Verifier: verifier,
		OAuth:    oauthClient,
		Tokens:   tokens,
		Version:  versionInfo.Version,
	})
	srv.Health().RegisterChecker("telemetry", handlers.CheckerFunc(func(context.Context) error {
		if cfg.Metrics.Enabled && (observability.TelemetrySystem == nil || observability.PrometheusExporter == nil) {
			return errwrap.NewInternalError("telemetry system not initialized")
		}
		return nil
	}))

	logger.Info("Initializing server",
		zap.String("service", binaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("addr", srv.Addr()),
		zap.String("environment", cfg.Server.Environment),
		zap.String("store_driver", tokens.Driver()),
		zap.Strings("dkim_selectors_override", verifier.Selectors),
		zap.Bool("oauth_configured", cfg.OAuth.Configured()),
		zap.Int("metrics_port", observability.GetMetricsPort()))

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Handlers run LIFO: server first, then the store, then the logger.
	signals.OnShutdown(func(ctx context.Context) error {
		if err := observability.ServerLogger.Sync(); err != nil {
			observability.ServerLogger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		closeStore(tokens)
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		observability.ServerLogger.Info("HTTP server stopped gracefully")
		return nil
	})

	// Reload rebuilds the server logger at the new level. Listener, store and
	// resolver settings need a restart.
	signals.OnReload(func(ctx context.Context) error {
		observability.ServerLogger.Info("Received SIGHUP: reloading configuration")
		reloaded, err := loadConfig(ctx)
		if err != nil {
			observability.ServerLogger.Error("Failed to reload configuration", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		if err := observability.InitServerLogger(loggerOpts(reloaded)); err != nil {
			observability.ServerLogger.Error("Failed to rebuild logger; keeping previous", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		observability.ServerLogger.Info("Configuration reloaded",
			zap.String("log_level", reloaded.Logging.Level))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()
	go func() {
		if err := signals.Listen(ctx); err != nil {
			observability.ServerLogger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		closeStore(tokens)
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}
