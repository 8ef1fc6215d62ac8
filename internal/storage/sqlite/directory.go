package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

func (d *DB) GetClass(ctx context.Context, classID int64) (live.Class, error) {
	var c live.Class
	err := d.db.QueryRowContext(ctx,
		`SELECT class_id, name, coach_id, COALESCE(workout_id, 0), duration_minutes
		 FROM classes WHERE class_id = ?`, classID).
		Scan(&c.ID, &c.Name, &c.CoachID, &c.WorkoutID, &c.DurationMinutes)
	if err != nil {
		return live.Class{}, notFound(err, fmt.Sprintf("class %d", classID))
	}
	return c, nil
}

func (d *DB) IsClassCoach(ctx context.Context, classID, coachID int64) (bool, error) {
	var ok bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM classes WHERE class_id = ? AND coach_id = ?)`,
		classID, coachID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking coach: %w", err)
	}
	return ok, nil
}

func (d *DB) IsBooked(ctx context.Context, classID, userID int64) (bool, error) {
	var ok bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_bookings WHERE class_id = ? AND member_id = ?)`,
		classID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking booking: %w", err)
	}
	return ok, nil
}

func (d *DB) BookedMembers(ctx context.Context, classID int64) ([]int64, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT member_id FROM class_bookings WHERE class_id = ? ORDER BY member_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *DB) WriteAttendanceScore(ctx context.Context, sc live.AttendanceScore) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO class_attendance (class_id, member_id, score, finished, marked_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (class_id, member_id) DO UPDATE
			SET score = excluded.score, finished = excluded.finished, marked_at = excluded.marked_at`,
		sc.ClassID, sc.UserID, sc.Score, sc.Finished, sc.MarkedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("writing attendance score: %w", err)
	}
	return nil
}

func (d *DB) AttendanceScores(ctx context.Context, classID int64) ([]live.AttendanceScore, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT class_id, member_id, score, finished, marked_at
		 FROM class_attendance WHERE class_id = ? ORDER BY member_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	defer rows.Close()

	var out []live.AttendanceScore
	for rows.Next() {
		var (
			sc       live.AttendanceScore
			markedAt int64
		)
		if err := rows.Scan(&sc.ClassID, &sc.UserID, &sc.Score, &sc.Finished, &markedAt); err != nil {
			return nil, fmt.Errorf("scanning attendance: %w", err)
		}
		sc.MarkedAt = time.Unix(0, markedAt).UTC()
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (d *DB) WorkoutVersion(ctx context.Context, workoutID int64) (int64, error) {
	var v int64
	err := d.db.QueryRowContext(ctx,
		`SELECT version FROM workouts WHERE workout_id = ?`, workoutID).Scan(&v)
	if err != nil {
		return 0, notFound(err, fmt.Sprintf("workout %d", workoutID))
	}
	return v, nil
}

func (d *DB) GetWorkoutStructure(ctx context.Context, workoutID int64) (workout.Workout, error) {
	var (
		w     workout.Workout
		typ   string
		limit sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT workout_id, version, workout_name, type, time_limit_minutes, number_of_rounds
		 FROM workouts WHERE workout_id = ?`, workoutID).
		Scan(&w.ID, &w.Version, &w.Name, &typ, &limit, &w.NumberOfRounds)
	if err != nil {
		return workout.Workout{}, notFound(err, fmt.Sprintf("workout %d", workoutID))
	}
	w.Type = workout.Type(typ)
	w.TimeLimitMinutes = int(limit.Int64)

	rows, err := d.db.QueryContext(ctx,
		`SELECT round_number, subround_number, name, position, quantity_type, quantity
		 FROM workout_exercises WHERE workout_id = ? ORDER BY seq`, workoutID)
	if err != nil {
		return workout.Workout{}, fmt.Errorf("querying workout structure: %w", err)
	}
	defer rows.Close()

	type subKey struct{ round, sub int }
	roundIdx := map[int]int{}
	subIdx := map[subKey]int{}
	for rows.Next() {
		var (
			roundNo, subNo int
			ex             workout.Exercise
			kind           string
		)
		if err := rows.Scan(&roundNo, &subNo, &ex.Name, &ex.Position, &kind, &ex.Quantity); err != nil {
			return workout.Workout{}, fmt.Errorf("scanning workout structure: %w", err)
		}
		ex.Kind = workout.QuantityKind(kind)

		ri, ok := roundIdx[roundNo]
		if !ok {
			ri = len(w.Rounds)
			roundIdx[roundNo] = ri
			w.Rounds = append(w.Rounds, workout.Round{Number: roundNo})
		}
		r := &w.Rounds[ri]
		si, ok := subIdx[subKey{roundNo, subNo}]
		if !ok {
			si = len(r.Subrounds)
			subIdx[subKey{roundNo, subNo}] = si
			r.Subrounds = append(r.Subrounds, workout.Subround{Number: subNo})
		}
		r.Subrounds[si].Exercises = append(r.Subrounds[si].Exercises, ex)
	}
	return w, rows.Err()
}

// SaveWorkout writes a workout and its structure. An existing id has its
// structure replaced and its version bumped. Returns the workout id.
func (d *DB) SaveWorkout(ctx context.Context, w workout.Workout) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var limit any
	if w.TimeLimitMinutes > 0 {
		limit = w.TimeLimitMinutes
	}
	rounds := max(w.NumberOfRounds, 1)

	id := w.ID
	if id == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO workouts (workout_name, type, time_limit_minutes, number_of_rounds)
			 VALUES (?, ?, ?, ?)`, w.Name, string(w.Type), limit, rounds)
		if err != nil {
			return 0, fmt.Errorf("inserting workout: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("reading workout id: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE workouts SET workout_name = ?, type = ?, time_limit_minutes = ?,
			 number_of_rounds = ?, version = version + 1
			 WHERE workout_id = ?`, w.Name, string(w.Type), limit, rounds, id)
		if err != nil {
			return 0, fmt.Errorf("updating workout: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, fmt.Errorf("workout %d: %w", id, live.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM workout_exercises WHERE workout_id = ?`, id); err != nil {
			return 0, fmt.Errorf("clearing structure: %w", err)
		}
	}

	seq := 0
	for _, r := range w.Rounds {
		for _, sr := range r.Subrounds {
			for _, ex := range sr.Exercises {
				kind := ex.Kind
				if kind == "" {
					kind = workout.Reps
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO workout_exercises
					 (workout_id, seq, round_number, subround_number, name, position, quantity_type, quantity)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
					id, seq, r.Number, sr.Number, ex.Name, ex.Position, string(kind), ex.Quantity); err != nil {
					return 0, fmt.Errorf("inserting exercise %q: %w", ex.Name, err)
				}
				seq++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing workout: %w", err)
	}
	return id, nil
}

// CreateClass inserts a class and returns its id.
func (d *DB) CreateClass(ctx context.Context, c live.Class) (int64, error) {
	var workoutID any
	if c.WorkoutID > 0 {
		workoutID = c.WorkoutID
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO classes (name, coach_id, workout_id, duration_minutes) VALUES (?, ?, ?, ?)`,
		c.Name, c.CoachID, workoutID, c.DurationMinutes)
	if err != nil {
		return 0, fmt.Errorf("inserting class: %w", err)
	}
	return res.LastInsertId()
}

// Book books members into a class. Existing bookings are kept.
func (d *DB) Book(ctx context.Context, classID int64, memberIDs ...int64) error {
	for _, id := range memberIDs {
		if _, err := d.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO class_bookings (class_id, member_id) VALUES (?, ?)`,
			classID, id); err != nil {
			return fmt.Errorf("booking member %d: %w", id, err)
		}
	}
	return nil
}
