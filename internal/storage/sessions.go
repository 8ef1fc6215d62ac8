package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `class_id, workout_id, run_id, status, workout_type, time_cap_seconds,
	started_at, paused_at, ended_at, pause_accum_seconds, step_count, steps, cum_reps,
	coach_notes, version`

// GetSession loads the session row for a class.
func (db *DB) GetSession(ctx context.Context, classID int64) (*live.Session, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM class_sessions WHERE class_id = $1`, classID)
	s, err := scanSession(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("session for class %d", classID))
	}
	return s, nil
}

func scanSession(row pgx.Row) (*live.Session, error) {
	var (
		s           live.Session
		status, typ string
		steps, cum  []byte
	)
	err := row.Scan(&s.ClassID, &s.WorkoutID, &s.RunID, &status, &typ, &s.TimeCapSeconds,
		&s.StartedAt, &s.PausedAt, &s.EndedAt, &s.PauseAccumSeconds, &s.StepCount, &steps, &cum,
		&s.CoachNotes, &s.Version)
	if err != nil {
		return nil, err
	}
	s.Status = live.Status(status)
	s.WorkoutType = workout.Type(typ)
	if err := json.Unmarshal(steps, &s.Steps); err != nil {
		return nil, fmt.Errorf("decoding steps: %w", err)
	}
	if err := json.Unmarshal(cum, &s.CumReps); err != nil {
		return nil, fmt.Errorf("decoding cum reps: %w", err)
	}
	return &s, nil
}

func encodeSteps(s live.Session) (steps, cum []byte, err error) {
	if s.Steps == nil {
		s.Steps = []workout.Step{}
	}
	if s.CumReps == nil {
		s.CumReps = []int{}
	}
	if steps, err = json.Marshal(s.Steps); err != nil {
		return nil, nil, fmt.Errorf("encoding steps: %w", err)
	}
	if cum, err = json.Marshal(s.CumReps); err != nil {
		return nil, nil, fmt.Errorf("encoding cum reps: %w", err)
	}
	return steps, cum, nil
}

// CreateRun overwrites the class's session and resets its progress in one
// transaction. See live.Store.
func (db *DB) CreateRun(ctx context.Context, s live.Session, expectVersion int64, members []int64) error {
	steps, cum, err := encodeSteps(s)
	if err != nil {
		return err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	args := []any{s.ClassID, s.WorkoutID, s.RunID, string(s.Status), string(s.WorkoutType),
		s.TimeCapSeconds, s.StartedAt, s.PausedAt, s.EndedAt, s.PauseAccumSeconds, s.StepCount,
		steps, cum, s.CoachNotes, expectVersion}

	var sql string
	if expectVersion == 0 {
		sql = `INSERT INTO class_sessions (` + sessionColumns + `)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15 + 1)
			ON CONFLICT (class_id) DO NOTHING`
	} else {
		sql = `UPDATE class_sessions SET workout_id = $2, run_id = $3, status = $4, workout_type = $5,
			time_cap_seconds = $6, started_at = $7, paused_at = $8, ended_at = $9,
			pause_accum_seconds = $10, step_count = $11, steps = $12, cum_reps = $13,
			coach_notes = $14, version = version + 1
			WHERE class_id = $1 AND version = $15`
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return live.ErrConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM live_progress WHERE class_id = $1`, s.ClassID); err != nil {
		return fmt.Errorf("clearing progress: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM live_interval_scores WHERE class_id = $1`, s.ClassID); err != nil {
		return fmt.Errorf("clearing interval scores: %w", err)
	}
	if len(members) > 0 {
		at := time.Now()
		if s.StartedAt != nil {
			at = *s.StartedAt
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO live_progress (class_id, user_id, updated_at)
			 SELECT $1, unnest($2::bigint[]), $3
			 ON CONFLICT DO NOTHING`,
			s.ClassID, members, at)
		if err != nil {
			return fmt.Errorf("seeding progress: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// UpdateSession writes s when the stored version matches expectVersion.
func (db *DB) UpdateSession(ctx context.Context, s live.Session, expectVersion int64) error {
	steps, cum, err := encodeSteps(s)
	if err != nil {
		return err
	}
	tag, err := db.Pool.Exec(ctx,
		`UPDATE class_sessions SET workout_id = $2, run_id = $3, status = $4, workout_type = $5,
		 time_cap_seconds = $6, started_at = $7, paused_at = $8, ended_at = $9,
		 pause_accum_seconds = $10, step_count = $11, steps = $12, cum_reps = $13,
		 coach_notes = $14, version = version + 1
		 WHERE class_id = $1 AND version = $15`,
		s.ClassID, s.WorkoutID, s.RunID, string(s.Status), string(s.WorkoutType),
		s.TimeCapSeconds, s.StartedAt, s.PausedAt, s.EndedAt, s.PauseAccumSeconds, s.StepCount,
		steps, cum, s.CoachNotes, expectVersion)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_sessions WHERE class_id = $1)`, s.ClassID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if !exists {
		return fmt.Errorf("session for class %d: %w", s.ClassID, live.ErrNotFound)
	}
	return live.ErrConflict
}
