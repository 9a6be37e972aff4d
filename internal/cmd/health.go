package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/jmail/domaincheck/internal/errors"
	"github.com/jmail/domaincheck/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Verify the binary can start: version metadata, configuration, the token store
and, with --domain, a live DNS lookup through the configured resolver.`,
	Run: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().String("domain", "", "Also resolve this domain's A record")
}

func runHealth(cmd *cobra.Command, _ []string) {
	logger := observability.CLILogger
	if logger == nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
		return
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if versionInfo.Version == "" {
		ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
		return
	}
	logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

	cfg, err := loadConfig(ctx)
	if err != nil {
		ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", errwrap.WrapConfigInvalid(ctx, err, "configuration invalid"))
		return
	}
	logger.Info("✅ Configuration valid", zap.String("environment", cfg.Server.Environment))

	tokens, err := openStore(ctx, cfg)
	if err != nil {
		ExitWithCode(logger, foundry.ExitFailure, "Token store unavailable", errwrap.WrapDatabaseError(ctx, err, "token store unavailable"))
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = tokens.Ping(pingCtx)
	cancel()
	closeStore(tokens)
	if err != nil {
		ExitWithCode(logger, foundry.ExitFailure, "Token store ping failed", errwrap.WrapDatabaseError(ctx, err, "token store ping failed"))
		return
	}
	logger.Info("✅ Token store reachable", zap.String("driver", cfg.Store.Driver))

	if domain, _ := cmd.Flags().GetString("domain"); domain != "" {
		v := newVerifier(cfg, logger)
		lookupCtx, cancel := context.WithTimeout(ctx, cfg.DNS.Timeout+time.Second)
		ips, err := v.Resolver.LookupA(lookupCtx, domain)
		cancel()
		if err != nil {
			ExitWithCode(logger, foundry.ExitFailure, "DNS lookup failed", errwrap.WrapExternalService(ctx, err, fmt.Sprintf("resolve %s", domain)))
			return
		}
		logger.Info("✅ DNS resolver reachable", zap.String("domain", domain), zap.Int("addresses", len(ips)))
	}

	if !cfg.OAuth.Configured() {
		logger.Warn("OAuth client credentials not set")
	}
	logger.Info("✅ All health checks passed")
}
