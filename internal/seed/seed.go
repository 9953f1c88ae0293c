// Package seed bootstraps an empty networked catalog from the bundled snapshot.
package seed

import (
	"context"

	"coffeeapi/internal/database"
	"coffeeapi/internal/database/file"

	"github.com/rs/zerolog"
)

// Coffees imports the snapshot at path when the store is empty.
// Non-fatal: every failure is logged and the store is left as it was.
// Returns the number of records imported.
func Coffees(ctx context.Context, store database.Seeder, path string, logger zerolog.Logger) int {
	count, err := store.CountCoffees(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("seed: failed to count coffees, skipping seeding")
		return 0
	}
	if count > 0 {
		logger.Debug().Int("coffees", count).Msg("seed: catalog already populated")
		return 0
	}

	coffees, err := file.ReadSnapshot(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("seed: failed to load snapshot, continuing without seeding")
		return 0
	}
	if len(coffees) == 0 {
		logger.Warn().Str("path", path).Msg("seed: snapshot is empty, skipping seeding")
		return 0
	}

	if err := store.ImportCoffees(ctx, coffees); err != nil {
		logger.Warn().Err(err).Msg("seed: failed to import coffees, continuing with empty catalog")
		return 0
	}

	logger.Info().Int("coffees", len(coffees)).Str("path", path).Msg("seed: catalog seeded")
	return len(coffees)
}
