package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/observability"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// GetLiveLeaderboard ranks participants from current progress. Interval
// workouts get the interval leaderboard.
func (e *Engine) GetLiveLeaderboard(ctx context.Context, classID int64) ([]LeaderboardRow, error) {
	defer observability.ObserveLeaderboard("live", time.Now())

	s, err := e.touch(ctx, classID)
	if err != nil {
		return nil, err
	}
	if s.WorkoutType.Interval() {
		return e.intervalBoard(ctx, s)
	}

	progress, err := e.store.ListProgress(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}
	if s.WorkoutType == workout.ForTime {
		return rankForTime(s, progress), nil
	}
	return rankAMRAP(s, progress), nil
}

// GetIntervalLeaderboard ranks EMOM/TABATA participants by summed interval reps.
func (e *Engine) GetIntervalLeaderboard(ctx context.Context, classID int64) ([]LeaderboardRow, error) {
	defer observability.ObserveLeaderboard("interval", time.Now())

	s, err := e.touch(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !s.WorkoutType.Interval() {
		return nil, fmt.Errorf("%w: session is %s", ErrNotIntervalWorkout, s.WorkoutType)
	}
	return e.intervalBoard(ctx, s)
}

func (e *Engine) intervalBoard(ctx context.Context, s *Session) ([]LeaderboardRow, error) {
	scores, err := e.store.ListIntervalScores(ctx, s.ClassID)
	if err != nil {
		return nil, fmt.Errorf("listing interval scores: %w", err)
	}
	progress, err := e.store.ListProgress(ctx, s.ClassID)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}
	members := make([]int64, 0, len(progress))
	for _, p := range progress {
		members = append(members, p.UserID)
	}
	return rankIntervals(members, scores), nil
}

// GetFinalLeaderboard ranks the finalized attendance scores. Classes that
// never ran a session still rank scores entered by the coach.
func (e *Engine) GetFinalLeaderboard(ctx context.Context, classID int64) ([]LeaderboardRow, error) {
	defer observability.ObserveLeaderboard("final", time.Now())

	var typ workout.Type
	s, err := e.touch(ctx, classID)
	switch {
	case errors.Is(err, ErrNotFound):
		if typ, err = e.classWorkoutType(ctx, classID); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		typ = s.WorkoutType
	}

	scores, err := e.dir.AttendanceScores(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("listing attendance scores: %w", err)
	}
	return rankFinal(typ, scores), nil
}

// classWorkoutType looks the type up from the class's workout. An empty
// type is returned when the workout has no steps, which ranks by score.
func (e *Engine) classWorkoutType(ctx context.Context, classID int64) (workout.Type, error) {
	class, err := e.dir.GetClass(ctx, classID)
	if err != nil {
		return "", fmt.Errorf("loading class %d: %w", classID, err)
	}
	plan, err := e.catalog.Plan(ctx, class.WorkoutID)
	switch {
	case errors.Is(err, workout.ErrEmptyWorkout):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("loading workout %d: %w", class.WorkoutID, err)
	}
	return plan.Type, nil
}
