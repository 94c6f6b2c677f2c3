package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dawon-meat/trace-cli/internal/config"
	"github.com/dawon-meat/trace-cli/internal/store"
	"github.com/dawon-meat/trace-cli/pkg/mtrace"
)

// openStore opens the configured production-log backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// newLookupClient builds the grading lookup client from config.
func newLookupClient(cfg config.MtraceConfig) mtrace.Client {
	opts := []mtrace.Option{
		mtrace.WithPaths(cfg.IssuePath, cfg.DetailPath),
		mtrace.WithRateLimit(cfg.RatePerSec),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, mtrace.WithBaseURL(cfg.BaseURL))
	}
	return mtrace.NewClient(cfg.APIKey, opts...)
}
