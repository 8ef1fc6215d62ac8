package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/config"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/importer"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/storage"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	seedPath := flag.String("path", "", "seed file or directory of seed files (required)")
	dryRun := flag.Bool("dry-run", false, "validate and report counts without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *seedPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: liveclass-import -config config.yaml -path seeds/ [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the database")
	}

	var db importer.Seeder
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		sdb, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			log.Error("failed to open sqlite", "error", err)
			os.Exit(1)
		}
		defer sdb.Close()
		db = sdb
	default:
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, cfg.Database.Migrations); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		pdb, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer pdb.Close()
		db = pdb
	}
	log.Info("database connected", "driver", cfg.Database.Driver)

	// Run import
	imp := importer.New(db, log, *dryRun)
	stats, err := imp.Import(ctx, *seedPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_errored", stats.FilesErrored,
		"workouts_saved", stats.WorkoutsSaved,
		"classes_created", stats.ClassesCreated,
		"bookings", stats.Bookings,
	)
}
