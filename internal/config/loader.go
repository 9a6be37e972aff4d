// Package config loads domaincheck configuration from defaults, the user
// config file, environment variables and runtime overrides.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmail/domaincheck/internal/appid"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec maps one environment variable onto a config path.
type EnvVarSpec = gfconfig.EnvVarSpec

const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// DefaultScopes are requested when oauth.scopes is empty.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host":             "localhost",
			"port":             3000,
			"read_timeout":     "30s",
			"write_timeout":    "30s",
			"idle_timeout":     "120s",
			"shutdown_timeout": "10s",
			"environment":      EnvDevelopment,
		},
		"dns": map[string]any{
			"nameservers": []any{},
			"timeout":     "5s",
		},
		"oauth": map[string]any{
			"redirect_uri": "http://localhost:3000/api/auth/callback",
			"scopes":       toAnySlice(DefaultScopes),
		},
		"store": map[string]any{
			"driver": DriverLibSQL,
		},
		"logging": map[string]any{
			"level":   "info",
			"profile": "STRUCTURED",
		},
		"metrics": map[string]any{
			"enabled": true,
			"port":    9090,
		},
		"health": map[string]any{
			"enabled": true,
		},
		"debug": map[string]any{
			"enabled": false,
		},
	}
}

// Load builds the configuration. Later layers win: defaults, the first user
// config file found, environment variables, then each runtime override map in
// order. Safe to call again on reload.
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	return load(ctx, "", runtimeOverrides)
}

// LoadFile is Load with path used in place of the discovered user config file.
func LoadFile(ctx context.Context, path string, runtimeOverrides ...map[string]any) (*Config, error) {
	return load(ctx, path, runtimeOverrides)
}

func load(ctx context.Context, path string, runtimeOverrides []map[string]any) (*Config, error) {
	_, configName, envPrefix := appid.Names(ctx)

	merged := Defaults()

	if path == "" {
		path = findUserConfig(configName)
	}
	if path != "" {
		fileLayer, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		mergeInto(merged, fileLayer)
	}

	envLayer, err := gfconfig.LoadEnvOverrides(envSpecs(envPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if envLayer == nil {
		envLayer = map[string]any{}
	}
	applyGoogleEnvFallbacks(envPrefix, envLayer)
	mergeInto(merged, envLayer)

	for _, layer := range runtimeOverrides {
		mergeInto(merged, layer)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}

	if cfg.Store.Driver == DriverLibSQL &&
		strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if len(cfg.OAuth.Scopes) == 0 {
		cfg.OAuth.Scopes = append([]string(nil), DefaultScopes...)
	}
	cfg.Server.Environment = strings.ToLower(strings.TrimSpace(cfg.Server.Environment))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	setConfig(cfg)
	return cfg, nil
}

func decode(raw map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// GetConfig returns the last loaded configuration.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func findUserConfig(configName string) string {
	for _, candidate := range gfconfig.GetAppConfigPaths(configName) {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			candidate = filepath.Join(candidate, "config.yaml")
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
		}
		return candidate
	}
	return ""
}

func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	layer := map[string]any{}
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return layer, nil
}

func envSpecs(prefix string) []EnvVarSpec {
	return []EnvVarSpec{
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		{Name: prefix + "ENVIRONMENT", Path: []string{"server", "environment"}, Type: EnvString},
		// Durations stay strings; the decode hook parses them.
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		{Name: prefix + "DNS_NAMESERVERS", Path: []string{"dns", "nameservers"}, Type: EnvString},
		{Name: prefix + "DNS_TIMEOUT", Path: []string{"dns", "timeout"}, Type: EnvString},

		{Name: prefix + "OAUTH_CLIENT_ID", Path: []string{"oauth", "client_id"}, Type: EnvString},
		{Name: prefix + "OAUTH_CLIENT_SECRET", Path: []string{"oauth", "client_secret"}, Type: EnvString},
		{Name: prefix + "OAUTH_REDIRECT_URI", Path: []string{"oauth", "redirect_uri"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},
		{Name: prefix + "REDIS_URL", Path: []string{"store", "redis_url"}, Type: EnvString},

		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
	}
}

// applyGoogleEnvFallbacks honours the conventional GOOGLE_CLIENT_ID,
// GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URI variables when the prefixed
// ones are unset.
func applyGoogleEnvFallbacks(prefix string, layer map[string]any) {
	fallbacks := []struct {
		prefixed, plain, key string
	}{
		{prefix + "OAUTH_CLIENT_ID", "GOOGLE_CLIENT_ID", "client_id"},
		{prefix + "OAUTH_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET", "client_secret"},
		{prefix + "OAUTH_REDIRECT_URI", "GOOGLE_REDIRECT_URI", "redirect_uri"},
	}
	for _, f := range fallbacks {
		if strings.TrimSpace(os.Getenv(f.prefixed)) != "" {
			continue
		}
		value := strings.TrimSpace(os.Getenv(f.plain))
		if value == "" {
			continue
		}
		ensureMap(layer, "oauth")[f.key] = value
	}
}

// mergeInto deep-merges src into dst. Nested maps merge key by key; any other
// value in src replaces the one in dst.
func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := asStringMap(value)
		if !srcIsMap {
			dst[key] = value
			continue
		}
		dstMap, dstIsMap := asStringMap(dst[key])
		if !dstIsMap {
			dstMap = map[string]any{}
		}
		mergeInto(dstMap, srcMap)
		dst[key] = dstMap
	}
}

func asStringMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if existing, ok := asStringMap(parent[key]); ok {
		parent[key] = existing
		return existing
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	_, configName, _ := appid.Names(context.Background())
	dir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the token database.
func DefaultStorePath() string {
	binaryName, configName, _ := appid.Names(context.Background())
	dir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dir, binaryName+".db")
}
