package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/storage"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/storage/sqlite"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
	"gopkg.in/yaml.v3"
)

// Seeder is the write side the importer needs from a store.
type Seeder interface {
	SaveWorkout(ctx context.Context, w workout.Workout) (int64, error)
	CreateClass(ctx context.Context, c live.Class) (int64, error)
	Book(ctx context.Context, classID int64, memberIDs ...int64) error
}

var (
	_ Seeder = (*storage.DB)(nil)
	_ Seeder = (*sqlite.DB)(nil)
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesErrored   int

	WorkoutsSaved  int
	ClassesCreated int
	Bookings       int
}

// Importer loads workouts, classes and bookings from YAML seed files.
type Importer struct {
	db       Seeder
	log      *slog.Logger
	dryRun   bool
	stats    Stats
	workouts map[string]int64
}

// New creates a new Importer. In dry-run mode files are parsed and
// validated but nothing is written.
func New(db Seeder, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, log: log, dryRun: dryRun, workouts: map[string]int64{}}
}

// Import processes path, either a single seed file or a directory whose
// .yaml/.yml files are read in name order. A file that fails validation is
// skipped and counted; a store error aborts the import.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	files, err := seedFiles(path)
	if err != nil {
		return &imp.stats, err
	}

	for _, f := range files {
		seed, err := readSeed(f)
		if err != nil {
			imp.log.Warn("seed file rejected", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		if err := imp.validate(seed); err != nil {
			imp.log.Warn("seed file rejected", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		if err := imp.apply(ctx, seed); err != nil {
			return &imp.stats, fmt.Errorf("importing %s: %w", f, err)
		}
		imp.stats.FilesProcessed++
		imp.log.Info("seed file imported", "file", f, "workouts", len(seed.Workouts), "classes", len(seed.Classes))
	}
	return &imp.stats, nil
}

func seedFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func readSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	return &seed, nil
}

// validate checks a whole file before any of it is written, so a rejected
// file leaves nothing behind.
func (imp *Importer) validate(seed *SeedFile) error {
	keys := map[string]bool{}
	for _, w := range seed.Workouts {
		if _, err := w.toWorkout(); err != nil {
			return err
		}
		if keys[w.Key] {
			return fmt.Errorf("duplicate workout key %q", w.Key)
		}
		keys[w.Key] = true
	}
	for _, c := range seed.Classes {
		if c.Workout != "" && !keys[c.Workout] {
			if _, ok := imp.workouts[c.Workout]; !ok {
				return fmt.Errorf("class %q: unknown workout %q", c.Name, c.Workout)
			}
		}
		if _, err := c.toClass(0); err != nil {
			return err
		}
	}
	return nil
}

func (imp *Importer) apply(ctx context.Context, seed *SeedFile) error {
	for _, sw := range seed.Workouts {
		w, _ := sw.toWorkout()
		if id, ok := imp.workouts[sw.Key]; ok {
			w.ID = id
		}
		var id int64
		if !imp.dryRun {
			var err error
			if id, err = imp.db.SaveWorkout(ctx, w); err != nil {
				return fmt.Errorf("saving workout %q: %w", sw.Key, err)
			}
		}
		imp.workouts[sw.Key] = id
		imp.stats.WorkoutsSaved++
	}

	for _, sc := range seed.Classes {
		c, _ := sc.toClass(imp.workouts[sc.Workout])
		imp.stats.ClassesCreated++
		imp.stats.Bookings += len(sc.Members)
		if imp.dryRun {
			continue
		}
		classID, err := imp.db.CreateClass(ctx, c)
		if err != nil {
			return fmt.Errorf("creating class %q: %w", sc.Name, err)
		}
		if len(sc.Members) > 0 {
			if err := imp.db.Book(ctx, classID, sc.Members...); err != nil {
				return fmt.Errorf("booking class %q: %w", sc.Name, err)
			}
		}
		imp.log.Debug("class created", "class_id", classID, "name", sc.Name, "members", len(sc.Members))
	}
	return nil
}
