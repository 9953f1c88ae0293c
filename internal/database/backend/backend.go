// Package backend turns storage configuration into a ready database.Store.
package backend

import (
	"context"
	"fmt"

	"coffeeapi/internal/config"
	"coffeeapi/internal/database"
	"coffeeapi/internal/database/file"
	"coffeeapi/internal/database/mongodb"
	"coffeeapi/internal/database/sqlstore"
	"coffeeapi/internal/seed"

	"github.com/rs/zerolog"
)

// Open builds the configured store. Networked backends that cannot be
// reached come back as a *database.Unavailable so the server still starts;
// only a broken FileStore is returned as an error.
func Open(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (database.Store, error) {
	name := cfg.SelectedBackend()
	logger = logger.With().Str("backend", name).Logger()

	var (
		store database.Store
		err   error
	)

	switch name {
	case config.BackendFile:
		fs, err := file.NewFileStore(cfg.File.Path, file.Options{ReadOnly: cfg.File.ReadOnly})
		if err != nil {
			return nil, fmt.Errorf("failed to open coffee file: %w", err)
		}
		logger.Info().Str("path", cfg.File.Path).Bool("read_only", cfg.File.ReadOnly).Msg("Using file store")
		return fs, nil

	case config.BackendMongo:
		if cfg.Mongo.URI == "" {
			return unavailable(logger, "MONGODB_URI is not set"), nil
		}
		store, err = mongodb.NewMongoStore(ctx, mongodb.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			Timeout:    cfg.Timeout.Duration,
		})

	case config.BackendPostgres, config.BackendSQLite:
		if cfg.SQL.DSN == "" {
			return unavailable(logger, "DATABASE_URL is not set"), nil
		}
		driver := sqlstore.DriverPostgres
		if name == config.BackendSQLite {
			driver = sqlstore.DriverSQLite
		}
		store, err = sqlstore.Open(ctx, sqlstore.Config{
			Driver:  driver,
			DSN:     cfg.SQL.DSN,
			Timeout: cfg.Timeout.Duration,
			Logger:  logger,
		})

	default:
		return nil, fmt.Errorf("unknown storage backend %q", name)
	}

	if err != nil {
		logger.Error().Err(err).Msg("Backend not ready, serving 503 for catalog routes")
		return &database.Unavailable{Reason: err.Error()}, nil
	}

	logger.Info().Msg("Connected to database")

	if seeder, ok := store.(database.Seeder); ok && cfg.Seed {
		seed.Coffees(ctx, seeder, cfg.SeedPath, logger)
	}

	return store, nil
}

func unavailable(logger zerolog.Logger, reason string) *database.Unavailable {
	logger.Warn().Str("reason", reason).Msg("Database not configured")
	return &database.Unavailable{Reason: reason}
}
