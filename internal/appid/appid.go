package appid

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/jmail/domaincheck/internal/assets/appidentity"
)

// Fallbacks used when no identity can be resolved.
const (
	DefaultBinaryName = "domaincheck"
	DefaultEnvPrefix  = "DOMAINCHECK_"
)

func init() {
	// FULMEN_APP_IDENTITY_PATH and .fulmen/app.yaml still take precedence.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

// Get resolves the application identity.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// Names returns the binary name, config name and env prefix (always ending
// in "_"), falling back to the built-in defaults for anything unset.
func Names(ctx context.Context) (binaryName, configName, envPrefix string) {
	binaryName, configName, envPrefix = DefaultBinaryName, DefaultBinaryName, DefaultEnvPrefix
	identity, err := Get(ctx)
	if err != nil || identity == nil {
		return binaryName, configName, envPrefix
	}
	if identity.BinaryName != "" {
		binaryName = identity.BinaryName
	}
	switch {
	case identity.ConfigName != "":
		configName = identity.ConfigName
	case identity.BinaryName != "":
		configName = identity.BinaryName
	}
	if identity.EnvPrefix != "" {
		envPrefix = identity.EnvPrefix
		if !strings.HasSuffix(envPrefix, "_") {
			envPrefix += "_"
		}
	}
	return binaryName, configName, envPrefix
}
