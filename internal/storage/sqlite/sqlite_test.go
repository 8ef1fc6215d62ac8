package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "live.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seed(t *testing.T, db *DB, typ workout.Type, limitMinutes int, members ...int64) int64 {
	t.Helper()
	ctx := context.Background()
	wid, err := db.SaveWorkout(ctx, workout.Workout{
		Name:             "Cindy",
		Type:             typ,
		TimeLimitMinutes: limitMinutes,
		NumberOfRounds:   1,
		Rounds: []workout.Round{{Number: 1, Subrounds: []workout.Subround{{Number: 1, Exercises: []workout.Exercise{
			{Name: "Push-up", Position: 2, Quantity: 10},
			{Name: "Pull-up", Position: 1, Quantity: 5},
			{Name: "Squat", Position: 3, Quantity: 15},
		}}}}},
	})
	require.NoError(t, err)

	classID, err := db.CreateClass(ctx, live.Class{Name: "noon", CoachID: 100, WorkoutID: wid, DurationMinutes: 30})
	require.NoError(t, err)
	require.NoError(t, db.Book(ctx, classID, members...))
	return classID
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "live.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Ping(context.Background()))
	require.NoError(t, db.Close())
}

func TestWorkoutStructure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	classID := seed(t, db, workout.AMRAP, 20)

	class, err := db.GetClass(ctx, classID)
	require.NoError(t, err)
	require.Equal(t, int64(100), class.CoachID)

	w, err := db.GetWorkoutStructure(ctx, class.WorkoutID)
	require.NoError(t, err)
	require.Equal(t, workout.AMRAP, w.Type)
	require.Equal(t, 20, w.TimeLimitMinutes)

	steps, cum, err := workout.Flatten(w)
	require.NoError(t, err)
	require.Equal(t, "Pull-up", steps[0].ExerciseName)
	require.Equal(t, []int{5, 15, 30}, cum)

	_, err = db.SaveWorkout(ctx, w)
	require.NoError(t, err)
	v, err := db.WorkoutVersion(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), v)

	_, err = db.WorkoutVersion(ctx, 999)
	require.ErrorIs(t, err, live.ErrNotFound)
}

func TestDirectoryLookups(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	classID := seed(t, db, workout.ForTime, 0, 3, 1, 2)

	members, err := db.BookedMembers(ctx, classID)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, members)

	ok, err := db.IsBooked(ctx, classID, 2)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = db.IsBooked(ctx, classID, 9)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = db.IsClassCoach(ctx, classID, 100)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = db.GetClass(ctx, classID+1)
	require.ErrorIs(t, err, live.ErrNotFound)

	at := time.Date(2025, 6, 2, 18, 30, 0, 0, time.UTC)
	require.NoError(t, db.WriteAttendanceScore(ctx, live.AttendanceScore{ClassID: classID, UserID: 2, Score: 40, MarkedAt: at}))
	require.NoError(t, db.WriteAttendanceScore(ctx, live.AttendanceScore{ClassID: classID, UserID: 2, Score: 301, Finished: true, MarkedAt: at}))

	scores, err := db.AttendanceScores(ctx, classID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, 301, scores[0].Score)
	require.True(t, scores[0].Finished)
	require.True(t, scores[0].MarkedAt.Equal(at))
}

func TestSessionRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	classID := seed(t, db, workout.ForTime, 0, 1, 2)

	started := time.Date(2025, 6, 2, 18, 0, 0, 123, time.UTC)
	capSecs := 600
	notes := "scale to ring rows"
	s := live.Session{
		ClassID:        classID,
		WorkoutID:      1,
		RunID:          "run-a",
		Status:         live.StatusLive,
		WorkoutType:    workout.ForTime,
		TimeCapSeconds: &capSecs,
		StartedAt:      &started,
		StepCount:      2,
		Steps:          []workout.Step{{Index: 0, ExerciseName: "a", Quantity: 5}, {Index: 1, ExerciseName: "b", Quantity: 5}},
		CumReps:        []int{5, 10},
		CoachNotes:     &notes,
	}
	require.NoError(t, db.CreateRun(ctx, s, 0, []int64{1, 2}))
	require.ErrorIs(t, db.CreateRun(ctx, s, 0, nil), live.ErrConflict)

	got, err := db.GetSession(ctx, classID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version)
	require.True(t, got.StartedAt.Equal(started))
	require.Nil(t, got.PausedAt)
	require.Equal(t, 600, *got.TimeCapSeconds)
	require.Equal(t, notes, *got.CoachNotes)
	require.Equal(t, s.Steps, got.Steps)

	progress, err := db.ListProgress(ctx, classID)
	require.NoError(t, err)
	require.Len(t, progress, 2)
	require.True(t, progress[0].UpdatedAt.Equal(started))

	paused := started.Add(time.Minute)
	got.Status = live.StatusPaused
	got.PausedAt = &paused
	require.NoError(t, db.UpdateSession(ctx, *got, 1))
	require.ErrorIs(t, db.UpdateSession(ctx, *got, 1), live.ErrConflict)

	missing := *got
	missing.ClassID = 4040
	require.ErrorIs(t, db.UpdateSession(ctx, missing, 1), live.ErrNotFound)

	// A fresh run wipes progress and intervals.
	require.NoError(t, db.UpsertIntervalReps(ctx, classID, 1, 0, 9, paused))
	s.RunID = "run-b"
	require.NoError(t, db.CreateRun(ctx, s, 2, []int64{2}))
	progress, err = db.ListProgress(ctx, classID)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	scores, err := db.ListIntervalScores(ctx, classID)
	require.NoError(t, err)
	require.Empty(t, scores)
}

func TestIntervalUpsertsKeepOtherColumns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	classID := seed(t, db, workout.EMOM, 10, 1)
	at := time.Now()

	secs := 42
	require.NoError(t, db.UpsertIntervalReps(ctx, classID, 1, 3, 12, at))
	require.NoError(t, db.UpsertIntervalMark(ctx, classID, 1, 3, true, &secs, at))
	require.NoError(t, db.UpsertIntervalReps(ctx, classID, 1, 3, 14, at))

	scores, err := db.ListIntervalScores(ctx, classID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, 14, scores[0].Reps)
	require.True(t, scores[0].Finished)
	require.Equal(t, 42, *scores[0].FinishSeconds)
}

func TestUpdateProgressRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	classID := seed(t, db, workout.ForTime, 0)

	_, err := db.UpdateProgress(ctx, classID, 5, func(p *live.Progress) error {
		p.CurrentStep = 3
		return live.ErrInvalidInput
	})
	require.ErrorIs(t, err, live.ErrInvalidInput)

	_, err = db.GetProgress(ctx, classID, 5)
	require.ErrorIs(t, err, live.ErrNotFound)
}

func TestEngineOnSQLite(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	classID := seed(t, db, workout.AMRAP, 0, 1, 2)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := live.New(db, db, workout.NewCatalog(db, 1<<20, log), log)

	_, err := engine.StartSession(ctx, classID, 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.AdvanceProgress(ctx, classID, 1, 1)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := engine.GetMyProgress(ctx, classID, 1)
	require.NoError(t, err)
	require.Equal(t, 6, view.RoundsCompleted)
	require.Equal(t, 2, view.CurrentStep)
	require.Equal(t, 6*30+15, view.TotalReps)

	rows, err := engine.GetLiveLeaderboard(ctx, classID)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows[0].UserID)

	_, err = engine.StopSession(ctx, classID, 100)
	require.NoError(t, err)
	final, err := engine.GetFinalLeaderboard(ctx, classID)
	require.NoError(t, err)
	require.Len(t, final, 2)
	require.Equal(t, 195, final[0].Score)
}
