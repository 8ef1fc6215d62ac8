package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const sessionColumns = `class_id, workout_id, run_id, status, workout_type, time_cap_seconds,
	started_at, paused_at, ended_at, pause_accum_seconds, step_count, steps, cum_reps,
	coach_notes, version`

func scanSession(row rowScanner) (*live.Session, error) {
	var (
		s                       live.Session
		status, typ, steps, cum string
		capSecs                 sql.NullInt64
		started, paused, ended  sql.NullInt64
		notes                   sql.NullString
	)
	err := row.Scan(&s.ClassID, &s.WorkoutID, &s.RunID, &status, &typ, &capSecs,
		&started, &paused, &ended, &s.PauseAccumSeconds, &s.StepCount, &steps, &cum,
		&notes, &s.Version)
	if err != nil {
		return nil, err
	}
	s.Status = live.Status(status)
	s.WorkoutType = workout.Type(typ)
	s.TimeCapSeconds = intPtr(capSecs)
	s.StartedAt = fromNanos(started)
	s.PausedAt = fromNanos(paused)
	s.EndedAt = fromNanos(ended)
	if notes.Valid {
		s.CoachNotes = &notes.String
	}
	if err := json.Unmarshal([]byte(steps), &s.Steps); err != nil {
		return nil, fmt.Errorf("decoding steps: %w", err)
	}
	if err := json.Unmarshal([]byte(cum), &s.CumReps); err != nil {
		return nil, fmt.Errorf("decoding cum reps: %w", err)
	}
	return &s, nil
}

func sessionArgs(s live.Session) ([]any, error) {
	if s.Steps == nil {
		s.Steps = []workout.Step{}
	}
	if s.CumReps == nil {
		s.CumReps = []int{}
	}
	steps, err := json.Marshal(s.Steps)
	if err != nil {
		return nil, fmt.Errorf("encoding steps: %w", err)
	}
	cum, err := json.Marshal(s.CumReps)
	if err != nil {
		return nil, fmt.Errorf("encoding cum reps: %w", err)
	}
	var notes any
	if s.CoachNotes != nil {
		notes = *s.CoachNotes
	}
	return []any{s.ClassID, s.WorkoutID, s.RunID, string(s.Status), string(s.WorkoutType),
		nullInt(s.TimeCapSeconds), nanos(s.StartedAt), nanos(s.PausedAt), nanos(s.EndedAt),
		s.PauseAccumSeconds, s.StepCount, string(steps), string(cum), notes}, nil
}

func (d *DB) GetSession(ctx context.Context, classID int64) (*live.Session, error) {
	s, err := scanSession(d.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM class_sessions WHERE class_id = ?`, classID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("session for class %d", classID))
	}
	return s, nil
}

func (d *DB) CreateRun(ctx context.Context, s live.Session, expectVersion int64, members []int64) error {
	args, err := sessionArgs(s)
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if expectVersion == 0 {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO class_sessions (`+sessionColumns+`)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,1)
			 ON CONFLICT (class_id) DO NOTHING`, args...)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE class_sessions SET workout_id = ?2, run_id = ?3, status = ?4, workout_type = ?5,
			 time_cap_seconds = ?6, started_at = ?7, paused_at = ?8, ended_at = ?9,
			 pause_accum_seconds = ?10, step_count = ?11, steps = ?12, cum_reps = ?13,
			 coach_notes = ?14, version = version + 1
			 WHERE class_id = ?1 AND version = ?15`, append(args, expectVersion)...)
	}
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return live.ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM live_progress WHERE class_id = ?`, s.ClassID); err != nil {
		return fmt.Errorf("clearing progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM live_interval_scores WHERE class_id = ?`, s.ClassID); err != nil {
		return fmt.Errorf("clearing interval scores: %w", err)
	}
	at := time.Now()
	if s.StartedAt != nil {
		at = *s.StartedAt
	}
	for _, uid := range members {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO live_progress (class_id, user_id, updated_at) VALUES (?, ?, ?)`,
			s.ClassID, uid, at.UnixNano()); err != nil {
			return fmt.Errorf("seeding progress for user %d: %w", uid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

func (d *DB) UpdateSession(ctx context.Context, s live.Session, expectVersion int64) error {
	args, err := sessionArgs(s)
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx,
		`UPDATE class_sessions SET workout_id = ?2, run_id = ?3, status = ?4, workout_type = ?5,
		 time_cap_seconds = ?6, started_at = ?7, paused_at = ?8, ended_at = ?9,
		 pause_accum_seconds = ?10, step_count = ?11, steps = ?12, cum_reps = ?13,
		 coach_notes = ?14, version = version + 1
		 WHERE class_id = ?1 AND version = ?15`, append(args, expectVersion)...)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	err = d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_sessions WHERE class_id = ?)`, s.ClassID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if !exists {
		return fmt.Errorf("session for class %d: %w", s.ClassID, live.ErrNotFound)
	}
	return live.ErrConflict
}

const progressColumns = `class_id, user_id, current_step, rounds_completed, dnf_partial_reps,
	finished_at, finish_seconds, updated_at`

func scanProgress(row rowScanner) (live.Progress, error) {
	var (
		p          live.Progress
		finishedAt sql.NullInt64
		finishSecs sql.NullInt64
		updatedAt  int64
	)
	err := row.Scan(&p.ClassID, &p.UserID, &p.CurrentStep, &p.RoundsCompleted, &p.DNFPartialReps,
		&finishedAt, &finishSecs, &updatedAt)
	if err != nil {
		return live.Progress{}, err
	}
	p.FinishedAt = fromNanos(finishedAt)
	p.FinishSeconds = intPtr(finishSecs)
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return p, nil
}

func (d *DB) GetProgress(ctx context.Context, classID, userID int64) (*live.Progress, error) {
	p, err := scanProgress(d.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM live_progress WHERE class_id = ? AND user_id = ?`,
		classID, userID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("progress for user %d", userID))
	}
	return &p, nil
}

func (d *DB) ListProgress(ctx context.Context, classID int64) ([]live.Progress, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM live_progress WHERE class_id = ? ORDER BY user_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}
	defer rows.Close()

	var out []live.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProgress runs fn inside a transaction; the single connection keeps
// concurrent updates from interleaving.
func (d *DB) UpdateProgress(ctx context.Context, classID, userID int64, fn func(p *live.Progress) error) (live.Progress, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return live.Progress{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO live_progress (class_id, user_id) VALUES (?, ?)`,
		classID, userID); err != nil {
		return live.Progress{}, fmt.Errorf("ensuring progress row: %w", err)
	}
	p, err := scanProgress(tx.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM live_progress WHERE class_id = ? AND user_id = ?`,
		classID, userID))
	if err != nil {
		return live.Progress{}, fmt.Errorf("reading progress: %w", err)
	}
	if err := fn(&p); err != nil {
		return live.Progress{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE live_progress SET current_step = ?, rounds_completed = ?, dnf_partial_reps = ?,
		 finished_at = ?, finish_seconds = ?, updated_at = ?
		 WHERE class_id = ? AND user_id = ?`,
		p.CurrentStep, p.RoundsCompleted, p.DNFPartialReps, nanos(p.FinishedAt),
		nullInt(p.FinishSeconds), p.UpdatedAt.UnixNano(), classID, userID); err != nil {
		return live.Progress{}, fmt.Errorf("writing progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return live.Progress{}, fmt.Errorf("committing progress: %w", err)
	}
	return p, nil
}

func (d *DB) UpsertIntervalReps(ctx context.Context, classID, userID int64, stepIndex, reps int, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO live_interval_scores (class_id, user_id, step_index, reps, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (class_id, user_id, step_index) DO UPDATE
			SET reps = excluded.reps, updated_at = excluded.updated_at`,
		classID, userID, stepIndex, reps, at.UnixNano())
	if err != nil {
		return fmt.Errorf("upserting interval reps: %w", err)
	}
	return nil
}

func (d *DB) UpsertIntervalMark(ctx context.Context, classID, userID int64, stepIndex int, finished bool, finishSeconds *int, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO live_interval_scores (class_id, user_id, step_index, finished, finish_seconds, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (class_id, user_id, step_index) DO UPDATE
			SET finished = excluded.finished, finish_seconds = excluded.finish_seconds,
			    updated_at = excluded.updated_at`,
		classID, userID, stepIndex, finished, nullInt(finishSeconds), at.UnixNano())
	if err != nil {
		return fmt.Errorf("upserting interval mark: %w", err)
	}
	return nil
}

func (d *DB) ListIntervalScores(ctx context.Context, classID int64) ([]live.IntervalScore, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT class_id, user_id, step_index, reps, finished, finish_seconds, updated_at
		 FROM live_interval_scores WHERE class_id = ?
		 ORDER BY user_id, step_index`, classID)
	if err != nil {
		return nil, fmt.Errorf("querying interval scores: %w", err)
	}
	defer rows.Close()

	var out []live.IntervalScore
	for rows.Next() {
		var (
			sc         live.IntervalScore
			finishSecs sql.NullInt64
			updatedAt  int64
		)
		if err := rows.Scan(&sc.ClassID, &sc.UserID, &sc.StepIndex, &sc.Reps, &sc.Finished,
			&finishSecs, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning interval score: %w", err)
		}
		sc.FinishSeconds = intPtr(finishSecs)
		sc.UpdatedAt = time.Unix(0, updatedAt).UTC()
		out = append(out, sc)
	}
	return out, rows.Err()
}
