// Package sqlite is a single-file live.Store and live.Directory for
// single-node deployments. All access goes through one connection, which
// serializes writers.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	_ "modernc.org/sqlite"
)

// DB implements live.Store and live.Directory on SQLite.
type DB struct {
	db *sql.DB
}

var (
	_ live.Store     = (*DB)(nil)
	_ live.Directory = (*DB)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS workouts (
	workout_id         INTEGER PRIMARY KEY AUTOINCREMENT,
	workout_name       TEXT NOT NULL,
	type               TEXT NOT NULL,
	time_limit_minutes INTEGER,
	number_of_rounds   INTEGER NOT NULL DEFAULT 1,
	version            INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS workout_exercises (
	workout_id      INTEGER NOT NULL REFERENCES workouts(workout_id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	round_number    INTEGER NOT NULL,
	subround_number INTEGER NOT NULL,
	name            TEXT NOT NULL,
	position        INTEGER NOT NULL,
	quantity_type   TEXT NOT NULL DEFAULT 'reps',
	quantity        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (workout_id, seq)
);
CREATE TABLE IF NOT EXISTS classes (
	class_id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL DEFAULT '',
	coach_id         INTEGER NOT NULL,
	workout_id       INTEGER,
	duration_minutes INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS class_bookings (
	class_id  INTEGER NOT NULL,
	member_id INTEGER NOT NULL,
	PRIMARY KEY (class_id, member_id)
);
CREATE TABLE IF NOT EXISTS class_attendance (
	class_id  INTEGER NOT NULL,
	member_id INTEGER NOT NULL,
	score     INTEGER NOT NULL DEFAULT 0,
	finished  INTEGER NOT NULL DEFAULT 0,
	marked_at INTEGER NOT NULL,
	PRIMARY KEY (class_id, member_id)
);
CREATE TABLE IF NOT EXISTS class_sessions (
	class_id            INTEGER PRIMARY KEY,
	workout_id          INTEGER NOT NULL,
	run_id              TEXT NOT NULL,
	status              TEXT NOT NULL,
	workout_type        TEXT NOT NULL,
	time_cap_seconds    INTEGER,
	started_at          INTEGER,
	paused_at           INTEGER,
	ended_at            INTEGER,
	pause_accum_seconds INTEGER NOT NULL DEFAULT 0,
	step_count          INTEGER NOT NULL DEFAULT 0,
	steps               TEXT NOT NULL DEFAULT '[]',
	cum_reps            TEXT NOT NULL DEFAULT '[]',
	coach_notes         TEXT,
	version             INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS live_progress (
	class_id         INTEGER NOT NULL,
	user_id          INTEGER NOT NULL,
	current_step     INTEGER NOT NULL DEFAULT 0,
	rounds_completed INTEGER NOT NULL DEFAULT 0,
	dnf_partial_reps INTEGER NOT NULL DEFAULT 0,
	finished_at      INTEGER,
	finish_seconds   INTEGER,
	updated_at       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (class_id, user_id)
);
CREATE TABLE IF NOT EXISTS live_interval_scores (
	class_id       INTEGER NOT NULL,
	user_id        INTEGER NOT NULL,
	step_index     INTEGER NOT NULL,
	reps           INTEGER NOT NULL DEFAULT 0,
	finished       INTEGER NOT NULL DEFAULT 0,
	finish_seconds INTEGER,
	updated_at     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (class_id, user_id, step_index)
);`

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the database is usable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, live.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Times are stored as unix nanoseconds.

func nanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func fromNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
