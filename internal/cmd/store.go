package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/config"
	"github.com/jmail/domaincheck/internal/core/store"
	"github.com/jmail/domaincheck/internal/observability"
)

func openStore(ctx context.Context, cfg *config.Config) (store.TokenStore, error) {
	tokens, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s token store: %w", cfg.Store.Driver, err)
	}
	if logger := observability.Active(); logger != nil {
		logger.Debug("Token store opened", zap.String("driver", tokens.Driver()))
	}
	return tokens, nil
}

func closeStore(tokens store.TokenStore) {
	if tokens == nil {
		return
	}
	if err := tokens.Close(); err != nil {
		if logger := observability.Active(); logger != nil {
			logger.Warn("Failed to close token store", zap.Error(err))
		}
	}
}
