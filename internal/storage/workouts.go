package storage

import (
	"context"
	"fmt"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// WorkoutVersion returns the current structure version of a workout.
func (db *DB) WorkoutVersion(ctx context.Context, workoutID int64) (int64, error) {
	var v int64
	err := db.Pool.QueryRow(ctx,
		`SELECT version FROM workouts WHERE workout_id = $1`, workoutID).Scan(&v)
	if err != nil {
		return 0, notFound(err, fmt.Sprintf("workout %d", workoutID))
	}
	return v, nil
}

// GetWorkoutStructure loads the workout with its rounds, subrounds and
// exercises. Children are returned in storage order; workout.Flatten sorts them.
func (db *DB) GetWorkoutStructure(ctx context.Context, workoutID int64) (workout.Workout, error) {
	var (
		w     workout.Workout
		typ   string
		limit *int
	)
	err := db.Pool.QueryRow(ctx,
		`SELECT workout_id, version, workout_name, type, time_limit_minutes, number_of_rounds
		 FROM workouts WHERE workout_id = $1`, workoutID).
		Scan(&w.ID, &w.Version, &w.Name, &typ, &limit, &w.NumberOfRounds)
	if err != nil {
		return workout.Workout{}, notFound(err, fmt.Sprintf("workout %d", workoutID))
	}
	w.Type = workout.Type(typ)
	if limit != nil {
		w.TimeLimitMinutes = *limit
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT r.round_id, r.round_number, s.subround_id, s.subround_number,
		        e.name, se.position, se.quantity_type, se.quantity
		 FROM rounds r
		 JOIN subrounds s ON s.round_id = r.round_id
		 JOIN subround_exercises se ON se.subround_id = s.subround_id
		 JOIN exercises e ON e.exercise_id = se.exercise_id
		 WHERE r.workout_id = $1
		 ORDER BY r.round_id, s.subround_id, se.subround_exercise_id`, workoutID)
	if err != nil {
		return workout.Workout{}, fmt.Errorf("querying workout structure: %w", err)
	}
	defer rows.Close()

	roundIdx := map[int64]int{}
	subIdx := map[int64]int{}
	for rows.Next() {
		var (
			roundID, subID int64
			roundNo, subNo int
			ex             workout.Exercise
			kind           string
		)
		if err := rows.Scan(&roundID, &roundNo, &subID, &subNo, &ex.Name, &ex.Position, &kind, &ex.Quantity); err != nil {
			return workout.Workout{}, fmt.Errorf("scanning workout structure: %w", err)
		}
		ex.Kind = workout.QuantityKind(kind)

		ri, ok := roundIdx[roundID]
		if !ok {
			ri = len(w.Rounds)
			roundIdx[roundID] = ri
			w.Rounds = append(w.Rounds, workout.Round{Number: roundNo})
		}
		r := &w.Rounds[ri]
		si, ok := subIdx[subID]
		if !ok {
			si = len(r.Subrounds)
			subIdx[subID] = si
			r.Subrounds = append(r.Subrounds, workout.Subround{Number: subNo})
		}
		r.Subrounds[si].Exercises = append(r.Subrounds[si].Exercises, ex)
	}
	return w, rows.Err()
}

// SaveWorkout writes a workout and its full structure. A workout with an
// existing id has its structure replaced and its version bumped. Returns
// the workout id.
func (db *DB) SaveWorkout(ctx context.Context, w workout.Workout) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var limit *int
	if w.TimeLimitMinutes > 0 {
		limit = &w.TimeLimitMinutes
	}
	rounds := w.NumberOfRounds
	if rounds <= 0 {
		rounds = 1
	}

	id := w.ID
	if id == 0 {
		err = tx.QueryRow(ctx,
			`INSERT INTO workouts (workout_name, type, time_limit_minutes, number_of_rounds)
			 VALUES ($1, $2, $3, $4) RETURNING workout_id`,
			w.Name, string(w.Type), limit, rounds).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("inserting workout: %w", err)
		}
	} else {
		tag, err := tx.Exec(ctx,
			`UPDATE workouts SET workout_name = $2, type = $3, time_limit_minutes = $4,
			 number_of_rounds = $5, version = version + 1, updated_at = NOW()
			 WHERE workout_id = $1`,
			id, w.Name, string(w.Type), limit, rounds)
		if err != nil {
			return 0, fmt.Errorf("updating workout: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, fmt.Errorf("workout %d: %w", id, live.ErrNotFound)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM rounds WHERE workout_id = $1`, id); err != nil {
			return 0, fmt.Errorf("clearing rounds: %w", err)
		}
	}

	for _, r := range w.Rounds {
		var roundID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO rounds (workout_id, round_number) VALUES ($1, $2) RETURNING round_id`,
			id, r.Number).Scan(&roundID); err != nil {
			return 0, fmt.Errorf("inserting round %d: %w", r.Number, err)
		}
		for _, sr := range r.Subrounds {
			var subID int64
			if err := tx.QueryRow(ctx,
				`INSERT INTO subrounds (round_id, subround_number) VALUES ($1, $2) RETURNING subround_id`,
				roundID, sr.Number).Scan(&subID); err != nil {
				return 0, fmt.Errorf("inserting subround %d: %w", sr.Number, err)
			}
			for _, ex := range sr.Exercises {
				var exID int64
				if err := tx.QueryRow(ctx,
					`INSERT INTO exercises (name) VALUES ($1)
					 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
					 RETURNING exercise_id`, ex.Name).Scan(&exID); err != nil {
					return 0, fmt.Errorf("inserting exercise %q: %w", ex.Name, err)
				}
				kind := ex.Kind
				if kind == "" {
					kind = workout.Reps
				}
				if _, err := tx.Exec(ctx,
					`INSERT INTO subround_exercises (subround_id, exercise_id, position, quantity_type, quantity)
					 VALUES ($1, $2, $3, $4, $5)`,
					subID, exID, ex.Position, string(kind), ex.Quantity); err != nil {
					return 0, fmt.Errorf("inserting subround exercise: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing workout: %w", err)
	}
	return id, nil
}
