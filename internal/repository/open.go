package repository

import (
	"context"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"papertrade/internal/config"
)

// Open returns the store selected by cfg.Driver. Postgres schemas are not
// applied here; see Database.Migrate.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory ledger, data will not survive a restart")
		return NewMemoryStore(), nil
	case "pebble":
		s, err := NewPebbleStore(cfg.Pebble.Path, &pebble.Options{
			Logger: newPebbleLogger(logger.Named("pebble")),
		})
		if err != nil {
			return nil, err
		}
		logger.Info("opened pebble ledger", zap.String("path", cfg.Pebble.Path))
		return s, nil
	case "postgres":
		db, err := NewDatabase(ctx, cfg.Postgres.ConnString())
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres ledger",
			zap.String("host", cfg.Postgres.Host),
			zap.String("database", cfg.Postgres.Name),
		)
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
