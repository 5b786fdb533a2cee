package main

import (
	"context"
	"os"
	"strings"

	"trialtab/adapters/docstore"
	"trialtab/adapters/postgres"
	"trialtab/app"
	"trialtab/internal"
	"trialtab/internal/migration"
)

// defaultPresets are snapshotted when a studies dir is given
var defaultPresets = []string{"overview", "serious-events", "other-events", "participant-flow"}

func main() {
	logger := internal.NewDefaultLogger()
	if len(os.Args) < 3 {
		logger.Error("Usage: migrate <postgres|sqlite> <database_url> [studies_dir] [preset,preset...]")
		os.Exit(2)
	}
	if err := run(context.Background(), logger, os.Args[1:]); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// run migrates the schema and, when a studies dir is given, stores one
// snapshot per study and preset
func run(ctx context.Context, logger *internal.Logger, args []string) error {
	driver, databaseURL := args[0], args[1]

	db, err := postgres.Open(ctx, driver, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		return err
	}
	logger.Info("Schema %s applied to %s database", migrator.Version(), driver)

	if len(args) < 3 {
		return nil
	}
	presetNames := defaultPresets
	if len(args) > 3 {
		presetNames = strings.Split(args[3], ",")
	}

	cache := docstore.NewCache(docstore.NewFileSource(args[2], nil), logger)
	studies := app.NewStudyService(cache, postgres.NewSnapshotRepository(db), logger)
	ids, err := studies.ListStudies(ctx)
	if err != nil {
		return err
	}
	logger.Info("Found %d studies to snapshot", len(ids))

	saved, skipped := 0, 0
	for _, id := range ids {
		for _, preset := range presetNames {
			if _, err := studies.SaveSnapshot(ctx, id, strings.TrimSpace(preset)); err != nil {
				logger.Warn("Failed to snapshot %s/%s: %v", id, preset, err)
				skipped++
				continue
			}
			saved++
		}
	}
	logger.Info("Snapshot import complete: %d saved, %d skipped", saved, skipped)
	return nil
}
