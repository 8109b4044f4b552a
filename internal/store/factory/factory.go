// Package factory builds the configured Store backend.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/money-assistant/internal/config"
	"github.com/dvloznov/money-assistant/internal/store"
	bqstore "github.com/dvloznov/money-assistant/internal/store/bigquery"
	"github.com/dvloznov/money-assistant/internal/store/memory"
	"github.com/dvloznov/money-assistant/internal/store/sqlite"
)

// New creates the Store named by cfg.Backend. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		log.Info().Msg("Using in-memory store")
		return memory.New(), nil

	case config.BackendSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite backend: %w", err)
		}
		log.Info().Str("db_path", cfg.SQLitePath).Msg("Using sqlite store")
		return s, nil

	case config.BackendBigQuery:
		s, err := bqstore.New(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("bigquery backend: %w", err)
		}
		log.Info().
			Str("project", cfg.BigQueryProject).
			Str("dataset", cfg.BigQueryDataset).
			Msg("Using bigquery store")
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %q", cfg.Backend)
	}
}
