package cmd

import (
	"github.com/fulmenhq/gofulmen/logging"

	"github.com/jmail/domaincheck/internal/config"
	"github.com/jmail/domaincheck/internal/core/resolver"
	"github.com/jmail/domaincheck/internal/core/verifier"
	"github.com/jmail/domaincheck/internal/oauth"
)

func newVerifier(cfg *config.Config, logger *logging.Logger) *verifier.Verifier {
	r := resolver.New(resolver.Config{
		Nameservers: cfg.DNS.Nameservers,
		Timeout:     cfg.DNS.Timeout,
	})
	v := verifier.New(r, logger)
	if len(cfg.DNS.DKIMSelectors) > 0 {
		v.Selectors = append([]string(nil), cfg.DNS.DKIMSelectors...)
	}
	return v
}

func newOAuthClient(cfg *config.Config) *oauth.Client {
	return oauth.New(oauth.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURI,
		Scopes:       cfg.OAuth.Scopes,
	})
}
