package storage

import (
	"context"
	"fmt"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
)

// GetClass loads the scheduling fields of a class.
func (db *DB) GetClass(ctx context.Context, classID int64) (live.Class, error) {
	var c live.Class
	err := db.Pool.QueryRow(ctx,
		`SELECT class_id, name, coach_id, COALESCE(workout_id, 0), duration_minutes
		 FROM classes WHERE class_id = $1`, classID).
		Scan(&c.ID, &c.Name, &c.CoachID, &c.WorkoutID, &c.DurationMinutes)
	if err != nil {
		return live.Class{}, notFound(err, fmt.Sprintf("class %d", classID))
	}
	return c, nil
}

// IsClassCoach reports whether coachID is the class's assigned coach.
func (db *DB) IsClassCoach(ctx context.Context, classID, coachID int64) (bool, error) {
	var ok bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM classes WHERE class_id = $1 AND coach_id = $2)`,
		classID, coachID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking coach: %w", err)
	}
	return ok, nil
}

// IsBooked reports whether the user holds a booking for the class.
func (db *DB) IsBooked(ctx context.Context, classID, userID int64) (bool, error) {
	var ok bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_bookings WHERE class_id = $1 AND member_id = $2)`,
		classID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking booking: %w", err)
	}
	return ok, nil
}

// BookedMembers lists the ids of members booked into the class.
func (db *DB) BookedMembers(ctx context.Context, classID int64) ([]int64, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT member_id FROM class_bookings WHERE class_id = $1 ORDER BY member_id`, classID)
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

// WriteAttendanceScore inserts or overwrites a member's attendance score.
func (db *DB) WriteAttendanceScore(ctx context.Context, sc live.AttendanceScore) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO class_attendance (class_id, member_id, score, finished, marked_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (class_id, member_id) DO UPDATE
			SET score = EXCLUDED.score, finished = EXCLUDED.finished, marked_at = EXCLUDED.marked_at`,
		sc.ClassID, sc.UserID, sc.Score, sc.Finished, sc.MarkedAt)
	if err != nil {
		return fmt.Errorf("writing attendance score: %w", err)
	}
	return nil
}

// AttendanceScores lists the class's attendance scores ordered by member.
func (db *DB) AttendanceScores(ctx context.Context, classID int64) ([]live.AttendanceScore, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT class_id, member_id, score, finished, marked_at
		 FROM class_attendance WHERE class_id = $1 ORDER BY member_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	defer rows.Close()

	var out []live.AttendanceScore
	for rows.Next() {
		var sc live.AttendanceScore
		if err := rows.Scan(&sc.ClassID, &sc.UserID, &sc.Score, &sc.Finished, &sc.MarkedAt); err != nil {
			return nil, fmt.Errorf("scanning attendance: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// CreateClass inserts a class and returns its id.
func (db *DB) CreateClass(ctx context.Context, c live.Class) (int64, error) {
	var workoutID *int64
	if c.WorkoutID > 0 {
		workoutID = &c.WorkoutID
	}
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO classes (name, coach_id, workout_id, duration_minutes)
		 VALUES ($1, $2, $3, $4) RETURNING class_id`,
		c.Name, c.CoachID, workoutID, c.DurationMinutes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting class: %w", err)
	}
	return id, nil
}

// Book books members into a class. Existing bookings are kept.
func (db *DB) Book(ctx context.Context, classID int64, memberIDs ...int64) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO class_bookings (class_id, member_id)
		 SELECT $1, unnest($2::bigint[])
		 ON CONFLICT DO NOTHING`,
		classID, memberIDs)
	if err != nil {
		return fmt.Errorf("inserting bookings: %w", err)
	}
	return nil
}
