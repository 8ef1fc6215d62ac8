package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/jackc/pgx/v5"
)

const progressColumns = `class_id, user_id, current_step, rounds_completed, dnf_partial_reps,
	finished_at, finish_seconds, updated_at`

func scanProgress(row pgx.Row) (live.Progress, error) {
	var p live.Progress
	err := row.Scan(&p.ClassID, &p.UserID, &p.CurrentStep, &p.RoundsCompleted, &p.DNFPartialReps,
		&p.FinishedAt, &p.FinishSeconds, &p.UpdatedAt)
	return p, err
}

// GetProgress loads one participant's progress row.
func (db *DB) GetProgress(ctx context.Context, classID, userID int64) (*live.Progress, error) {
	p, err := scanProgress(db.Pool.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM live_progress WHERE class_id = $1 AND user_id = $2`,
		classID, userID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("progress for user %d", userID))
	}
	return &p, nil
}

// ListProgress returns all progress rows for a class ordered by user.
func (db *DB) ListProgress(ctx context.Context, classID int64) ([]live.Progress, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+progressColumns+` FROM live_progress WHERE class_id = $1 ORDER BY user_id`, classID)
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

// UpdateProgress locks the participant's row, applies fn and writes the
// result in one transaction.
func (db *DB) UpdateProgress(ctx context.Context, classID, userID int64, fn func(p *live.Progress) error) (live.Progress, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return live.Progress{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO live_progress (class_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		classID, userID)
	if err != nil {
		return live.Progress{}, fmt.Errorf("ensuring progress row: %w", err)
	}

	p, err := scanProgress(tx.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM live_progress
		 WHERE class_id = $1 AND user_id = $2 FOR UPDATE`,
		classID, userID))
	if err != nil {
		return live.Progress{}, fmt.Errorf("locking progress: %w", err)
	}

	if err := fn(&p); err != nil {
		return live.Progress{}, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE live_progress SET current_step = $3, rounds_completed = $4, dnf_partial_reps = $5,
		 finished_at = $6, finish_seconds = $7, updated_at = $8
		 WHERE class_id = $1 AND user_id = $2`,
		classID, userID, p.CurrentStep, p.RoundsCompleted, p.DNFPartialReps,
		p.FinishedAt, p.FinishSeconds, p.UpdatedAt)
	if err != nil {
		return live.Progress{}, fmt.Errorf("writing progress: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return live.Progress{}, fmt.Errorf("committing progress: %w", err)
	}
	return p, nil
}

// UpsertIntervalReps sets the reps for one interval, keeping any EMOM mark.
func (db *DB) UpsertIntervalReps(ctx context.Context, classID, userID int64, stepIndex, reps int, at time.Time) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO live_interval_scores (class_id, user_id, step_index, reps, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (class_id, user_id, step_index) DO UPDATE
			SET reps = EXCLUDED.reps, updated_at = EXCLUDED.updated_at`,
		classID, userID, stepIndex, reps, at)
	if err != nil {
		return fmt.Errorf("upserting interval reps: %w", err)
	}
	return nil
}

// UpsertIntervalMark sets the EMOM finished flag and second, keeping reps.
func (db *DB) UpsertIntervalMark(ctx context.Context, classID, userID int64, stepIndex int, finished bool, finishSeconds *int, at time.Time) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO live_interval_scores (class_id, user_id, step_index, finished, finish_seconds, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (class_id, user_id, step_index) DO UPDATE
			SET finished = EXCLUDED.finished, finish_seconds = EXCLUDED.finish_seconds,
			    updated_at = EXCLUDED.updated_at`,
		classID, userID, stepIndex, finished, finishSeconds, at)
	if err != nil {
		return fmt.Errorf("upserting interval mark: %w", err)
	}
	return nil
}

// ListIntervalScores returns a class's interval rows ordered by user and index.
func (db *DB) ListIntervalScores(ctx context.Context, classID int64) ([]live.IntervalScore, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT class_id, user_id, step_index, reps, finished, finish_seconds, updated_at
		 FROM live_interval_scores WHERE class_id = $1
		 ORDER BY user_id, step_index`, classID)
	if err != nil {
		return nil, fmt.Errorf("querying interval scores: %w", err)
	}
	defer rows.Close()

	var out []live.IntervalScore
	for rows.Next() {
		var sc live.IntervalScore
		if err := rows.Scan(&sc.ClassID, &sc.UserID, &sc.StepIndex, &sc.Reps, &sc.Finished,
			&sc.FinishSeconds, &sc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning interval score: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
