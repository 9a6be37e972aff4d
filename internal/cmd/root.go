package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/appid"
	"github.com/jmail/domaincheck/internal/config"
	"github.com/jmail/domaincheck/internal/observability"
	"github.com/jmail/domaincheck/internal/server/handlers"
)

var (
	cfgFile string
	verbose bool

	appIdentity *appidentity.Identity

	versionInfo handlers.BuildInfo
)

// flagOverrideKeys are config paths that command flags may set. A flag only
// overrides the loaded configuration when the user passed it.
var flagOverrideKeys = []string{
	"server.host",
	"server.port",
	"server.environment",
	"logging.level",
	"dns.nameservers",
	"dns.timeout",
	"dns.dkim_selectors",
	"metrics.enabled",
	"metrics.port",
}

// SetVersionInfo is called by main with linker-stamped values.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo = handlers.BuildInfo{Version: version, Commit: commit, BuildDate: buildDate}
	handlers.SetBuildInfo(versionInfo)
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	// initConfig overwrites these from the app identity.
	Use:   filepath.Base(os.Args[0]),
	Short: "Check a domain's email authentication DNS records",
	Long: `Check a domain's email authentication DNS records (SPF, DKIM, DMARC, MX and
address resolution) from the command line or over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Keep config loading from emitting metrics before serve sets up telemetry.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults to the XDG config path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func applyIdentity(identity *appidentity.Identity) {
	appIdentity = identity
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity", err)
	}
	applyIdentity(identity)

	binaryName, _, _ := appid.Names(context.Background())
	observability.InitCLILogger(binaryName, verbose)
}

// loadConfig layers flag overrides on top of the file and environment
// configuration.
func loadConfig(ctx context.Context) (*config.Config, error) {
	overrides := flagOverrides()
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(ctx, cfgFile, overrides)
	} else {
		cfg, err = config.Load(ctx, overrides)
	}
	if err != nil {
		return nil, err
	}

	if logger := observability.CLILogger; logger != nil {
		logger.Debug("Configuration loaded",
			zap.String("config_file", cfgFile),
			zap.String("environment", cfg.Server.Environment),
			zap.String("store_driver", cfg.Store.Driver))
	}
	return cfg, nil
}

func flagOverrides() map[string]any {
	out := map[string]any{}
	for _, key := range flagOverrideKeys {
		if !viper.IsSet(key) {
			continue
		}
		value := viper.Get(key)
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		setPath(out, strings.Split(key, "."), value)
	}
	if verbose && !viper.IsSet("logging.level") {
		setPath(out, []string{"logging", "level"}, "debug")
	}
	return out
}

func setPath(dst map[string]any, path []string, value any) {
	for _, key := range path[:len(path)-1] {
		next, ok := dst[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			dst[key] = next
		}
		dst = next
	}
	dst[path[len(path)-1]] = value
}
