package live

import (
	"context"
	"errors"
	"fmt"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/observability"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// liveSessionFor authorizes a participant write and returns the session,
// which must be live.
func (e *Engine) liveSessionFor(ctx context.Context, classID, userID int64) (*Session, error) {
	if err := e.authorizeMember(ctx, classID, userID); err != nil {
		return nil, err
	}
	s, err := e.touch(ctx, classID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("class %d: %w", classID, ErrSessionNotStarted)
	}
	if err != nil {
		return nil, err
	}
	if s.Status != StatusLive {
		return nil, fmt.Errorf("class %d is %s: %w", classID, s.Status, ErrSessionNotStarted)
	}
	return s, nil
}

// AdvanceProgress moves the participant one step forward (+1) or back (-1).
func (e *Engine) AdvanceProgress(ctx context.Context, classID, userID int64, direction int) (*Progress, error) {
	s, err := e.liveSessionFor(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if direction != 1 && direction != -1 {
		return nil, ErrInvalidDirection
	}
	if s.WorkoutType.Interval() {
		return nil, fmt.Errorf("%w: %s sessions are scored per interval", ErrWrongWorkoutType, s.WorkoutType)
	}

	p, err := e.store.UpdateProgress(ctx, classID, userID, func(p *Progress) error {
		return advance(s, p, direction, e.now())
	})
	if err != nil {
		return nil, fmt.Errorf("advancing progress: %w", err)
	}
	observability.RecordProgressUpdate(string(s.WorkoutType), "advance")
	return &p, nil
}

// SubmitPartial records reps done inside the current step.
func (e *Engine) SubmitPartial(ctx context.Context, classID, userID int64, reps int) (*Progress, error) {
	s, err := e.liveSessionFor(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if reps < 0 {
		return nil, fmt.Errorf("%w: reps must not be negative", ErrInvalidInput)
	}
	if s.WorkoutType.Interval() {
		return nil, fmt.Errorf("%w: partial reps do not apply to %s", ErrWrongWorkoutType, s.WorkoutType)
	}

	p, err := e.store.UpdateProgress(ctx, classID, userID, func(p *Progress) error {
		p.DNFPartialReps = reps
		p.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("saving partial reps: %w", err)
	}
	observability.RecordProgressUpdate(string(s.WorkoutType), "partial")
	return &p, nil
}

func checkIntervalIndex(s *Session, idx int) error {
	if !s.WorkoutType.Interval() {
		return fmt.Errorf("%w: session is %s", ErrNotIntervalWorkout, s.WorkoutType)
	}
	return checkIndex(idx, s.StepCount)
}

func checkIndex(idx, n int) error {
	if idx < 0 || idx >= n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidStepIndex, idx, n)
	}
	return nil
}

// emomMinutes is the number of markable EMOM minutes: the minutes in the
// time cap, or the step count when that is larger or there is no cap.
func emomMinutes(s *Session) int {
	n := s.StepCount
	if s.TimeCapSeconds != nil {
		if m := (*s.TimeCapSeconds + 59) / 60; m > n {
			n = m
		}
	}
	return n
}

// PostIntervalScore records reps for one interval, overwriting any earlier
// entry for it.
func (e *Engine) PostIntervalScore(ctx context.Context, classID, userID int64, stepIndex, reps int) error {
	s, err := e.liveSessionFor(ctx, classID, userID)
	if err != nil {
		return err
	}
	if err := checkIntervalIndex(s, stepIndex); err != nil {
		return err
	}
	if reps < 0 {
		return fmt.Errorf("%w: reps must not be negative", ErrInvalidInput)
	}
	if err := e.store.UpsertIntervalReps(ctx, classID, userID, stepIndex, reps, e.now()); err != nil {
		return fmt.Errorf("saving interval score: %w", err)
	}
	observability.RecordProgressUpdate(string(s.WorkoutType), "interval")
	return nil
}

// PostEmomMark records whether the participant finished the work of one
// EMOM minute and at which second.
func (e *Engine) PostEmomMark(ctx context.Context, classID, userID int64, minuteIndex int, finished bool, finishSeconds *int) error {
	s, err := e.liveSessionFor(ctx, classID, userID)
	if err != nil {
		return err
	}
	if s.WorkoutType != workout.EMOM {
		return fmt.Errorf("%w: minute marks only apply to EMOM", ErrWrongWorkoutType)
	}
	if err := checkIndex(minuteIndex, emomMinutes(s)); err != nil {
		return err
	}

	// An unfinished minute counts as the full 60 seconds.
	secs := 60
	switch {
	case finishSeconds != nil:
		secs = min(max(*finishSeconds, 0), 60)
	case finished:
		secs = 0
	}
	if err := e.store.UpsertIntervalMark(ctx, classID, userID, minuteIndex, finished, &secs, e.now()); err != nil {
		return fmt.Errorf("saving emom mark: %w", err)
	}
	observability.RecordProgressUpdate(string(s.WorkoutType), "emom_mark")
	return nil
}

// GetMyProgress returns the caller's own progress. Participants without a
// row yet see the starting position.
func (e *Engine) GetMyProgress(ctx context.Context, classID, userID int64) (*ProgressView, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	s, err := e.touch(ctx, classID)
	if err != nil {
		return nil, err
	}

	p, err := e.store.GetProgress(ctx, classID, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		p = &Progress{ClassID: classID, UserID: userID}
	case err != nil:
		return nil, fmt.Errorf("loading progress: %w", err)
	}

	reps := 0
	if s.WorkoutType.Interval() {
		scores, err := e.store.ListIntervalScores(ctx, classID)
		if err != nil {
			return nil, fmt.Errorf("listing interval scores: %w", err)
		}
		for _, sc := range scores {
			if sc.UserID == userID {
				reps += sc.Reps
			}
		}
	}

	v := view(s, *p, reps, e.now())
	return &v, nil
}

// SubmitMyScore lets a booked participant record their own final score.
func (e *Engine) SubmitMyScore(ctx context.Context, classID, userID int64, score int) error {
	if err := e.authorizeMember(ctx, classID, userID); err != nil {
		return err
	}
	if score < 0 {
		return fmt.Errorf("%w: score must not be negative", ErrInvalidInput)
	}
	err := e.dir.WriteAttendanceScore(ctx, AttendanceScore{
		ClassID:  classID,
		UserID:   userID,
		Score:    score,
		MarkedAt: e.now(),
	})
	if err != nil {
		return fmt.Errorf("saving score: %w", err)
	}
	observability.RecordScoresWritten("member", 1)
	return nil
}
