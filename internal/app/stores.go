package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/zapdoc-api/internal/config"
	"github.com/jwalitptl/zapdoc-api/internal/repository/memory"
	"github.com/jwalitptl/zapdoc-api/internal/repository/postgres"
)

// OpenStores connects the configured database driver. The returned close
// function releases it.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig, migrate bool) (*Stores, func() error, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn().Msg("using in-memory store, data is lost on exit")
		return MemoryStores(memory.NewStore()), func() error { return nil }, nil

	case "postgres", "":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return PostgresStores(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
