package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every XDG location at a temp dir so a developer's own
// config never leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	for _, key := range []string{"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URI"} {
		t.Setenv(key, "")
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.False(t, cfg.Server.IsProduction())

	assert.Equal(t, 5*time.Second, cfg.DNS.Timeout)
	assert.Empty(t, cfg.DNS.Nameservers)

	assert.Equal(t, DefaultScopes, cfg.OAuth.Scopes)
	assert.False(t, cfg.OAuth.Configured())

	assert.Equal(t, DriverLibSQL, cfg.Store.Driver)
	assert.Equal(t, DefaultStorePath(), cfg.Store.Path)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("DOMAINCHECK_PORT", "8088")
	t.Setenv("DOMAINCHECK_ENVIRONMENT", "Production")
	t.Setenv("DOMAINCHECK_DNS_NAMESERVERS", "192.0.2.53,192.0.2.54:5353")
	t.Setenv("DOMAINCHECK_DNS_TIMEOUT", "2s")
	t.Setenv("DOMAINCHECK_OAUTH_CLIENT_ID", "prefixed-id")
	t.Setenv("GOOGLE_CLIENT_ID", "plain-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "plain-secret")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, []string{"192.0.2.53", "192.0.2.54:5353"}, cfg.DNS.Nameservers)
	assert.Equal(t, 2*time.Second, cfg.DNS.Timeout)
	assert.Equal(t, "prefixed-id", cfg.OAuth.ClientID)
	assert.Equal(t, "plain-secret", cfg.OAuth.ClientSecret)
	assert.True(t, cfg.OAuth.Configured())
}

func TestLoadFileAndRuntimeOverrides(t *testing.T) {
	home := isolate(t)

	path := filepath.Join(home, "domaincheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 4000
  environment: test
dns:
  timeout: 750ms
  dkim_selectors: [s1, s2]
store:
  driver: redis
  redis_url: redis://localhost:6379/0
`), 0o600))

	cfg, err := LoadFile(context.Background(), path, map[string]any{
		"server": map[string]any{"port": 4100},
	})
	require.NoError(t, err)

	assert.Equal(t, 4100, cfg.Server.Port)
	assert.Equal(t, EnvTest, cfg.Server.Environment)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 750*time.Millisecond, cfg.DNS.Timeout)
	assert.Equal(t, []string{"s1", "s2"}, cfg.DNS.DKIMSelectors)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)

	_, err := Load(context.Background(), map[string]any{
		"server": map[string]any{"environment": "staging"},
	})
	require.Error(t, err)

	_, err = Load(context.Background(), map[string]any{
		"store": map[string]any{"driver": "redis"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis_url")
}

func TestMergeInto(t *testing.T) {
	dst := map[string]any{
		"server": map[string]any{"host": "a", "port": 1},
		"list":   []any{"x"},
	}
	mergeInto(dst, map[string]any{
		"server": map[any]any{"port": 2},
		"list":   []any{"y", "z"},
		"new":    true,
	})

	assert.Equal(t, map[string]any{"host": "a", "port": 2}, dst["server"])
	assert.Equal(t, []any{"y", "z"}, dst["list"])
	assert.Equal(t, true, dst["new"])
}
