package live

import (
	"context"
	"fmt"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/observability"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// coachEdit authorizes a coach correction to a participant's result and
// returns the session, which must have been started.
func (e *Engine) coachEdit(ctx context.Context, classID, coachID, userID int64) (*Session, error) {
	if _, err := e.authorizeCoach(ctx, classID, coachID); err != nil {
		return nil, err
	}
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	booked, err := e.dir.IsBooked(ctx, classID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking booking: %w", err)
	}
	if !booked {
		return nil, fmt.Errorf("%w: user %d is not booked into class %d", ErrInvalidInput, userID, classID)
	}
	s, err := e.touch(ctx, classID)
	if err != nil {
		return nil, err
	}
	if s.StartedAt == nil {
		return nil, fmt.Errorf("class %d: %w", classID, ErrSessionNotStarted)
	}
	return s, nil
}

// refinalize rewrites one participant's attendance score after a coach
// edit to an ended session.
func (e *Engine) refinalize(ctx context.Context, s *Session, p Progress) error {
	if s.Status != StatusEnded {
		return nil
	}
	reps := 0
	if s.WorkoutType.Interval() {
		scores, err := e.store.ListIntervalScores(ctx, s.ClassID)
		if err != nil {
			return fmt.Errorf("listing interval scores: %w", err)
		}
		if t, ok := sumIntervals(scores)[p.UserID]; ok {
			reps = t.reps
		}
	}
	if err := e.dir.WriteAttendanceScore(ctx, finalScore(s, p, reps, e.now())); err != nil {
		return fmt.Errorf("rewriting attendance score: %w", err)
	}
	observability.RecordScoresWritten("coach", 1)
	return nil
}

// CoachSetForTimeFinish sets a participant's finish time in seconds from
// the start, or clears it when seconds is nil.
func (e *Engine) CoachSetForTimeFinish(ctx context.Context, classID, coachID, userID int64, seconds *int) (*Progress, error) {
	s, err := e.coachEdit(ctx, classID, coachID, userID)
	if err != nil {
		return nil, err
	}
	if s.WorkoutType != workout.ForTime {
		return nil, fmt.Errorf("%w: finish times only apply to FOR_TIME", ErrWrongWorkoutType)
	}
	if seconds != nil && *seconds < 0 {
		return nil, fmt.Errorf("%w: seconds must not be negative", ErrInvalidInput)
	}

	p, err := e.store.UpdateProgress(ctx, classID, userID, func(p *Progress) error {
		if seconds == nil {
			p.FinishedAt = nil
			p.FinishSeconds = nil
			if p.CurrentStep >= s.StepCount {
				p.CurrentStep = s.StepCount - 1
			}
		} else {
			secs := *seconds
			at := s.StartedAt.Add(time.Duration(secs) * time.Second)
			p.FinishedAt = &at
			p.FinishSeconds = &secs
			p.CurrentStep = s.StepCount
			p.DNFPartialReps = 0
		}
		p.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("setting finish time: %w", err)
	}
	observability.RecordProgressUpdate(string(s.WorkoutType), "coach_finish")
	e.log.Info("coach set finish", "class_id", classID, "coach_id", coachID, "user_id", userID, "cleared", seconds == nil)
	return &p, e.refinalize(ctx, s, p)
}

// CoachSetAmrapTotal sets a participant's AMRAP result from a total rep
// count, mapped onto rounds, step and partial reps.
func (e *Engine) CoachSetAmrapTotal(ctx context.Context, classID, coachID, userID int64, totalReps int) (*Progress, error) {
	s, err := e.coachEdit(ctx, classID, coachID, userID)
	if err != nil {
		return nil, err
	}
	if s.WorkoutType != workout.AMRAP {
		return nil, fmt.Errorf("%w: rep totals only apply to AMRAP", ErrWrongWorkoutType)
	}
	if totalReps < 0 {
		return nil, fmt.Errorf("%w: total reps must not be negative", ErrInvalidInput)
	}

	rounds, step, partial := amrapPosition(s.CumReps, totalReps)
	p, err := e.store.UpdateProgress(ctx, classID, userID, func(p *Progress) error {
		p.RoundsCompleted = rounds
		p.CurrentStep = step
		p.DNFPartialReps = partial
		p.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("setting amrap total: %w", err)
	}
	observability.RecordProgressUpdate(string(s.WorkoutType), "coach_total")
	e.log.Info("coach set amrap total", "class_id", classID, "coach_id", coachID, "user_id", userID, "total", totalReps)
	return &p, e.refinalize(ctx, s, p)
}

// CoachPostIntervalScore records interval reps on a participant's behalf.
func (e *Engine) CoachPostIntervalScore(ctx context.Context, classID, coachID, userID int64, stepIndex, reps int) error {
	s, err := e.coachEdit(ctx, classID, coachID, userID)
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
	observability.RecordProgressUpdate(string(s.WorkoutType), "coach_interval")
	return e.refinalize(ctx, s, Progress{ClassID: classID, UserID: userID})
}

// SubmitScores overwrites attendance scores in bulk. Rows with a missing
// user, a negative score or a user not booked into the class are skipped.
// It returns the number of rows written.
func (e *Engine) SubmitScores(ctx context.Context, classID, coachID int64, scores []ScoreInput) (int, error) {
	if _, err := e.authorizeCoach(ctx, classID, coachID); err != nil {
		return 0, err
	}

	now := e.now()
	written := 0
	for _, in := range scores {
		if in.UserID <= 0 || in.Score < 0 {
			continue
		}
		booked, err := e.dir.IsBooked(ctx, classID, in.UserID)
		if err != nil {
			return written, fmt.Errorf("checking booking for user %d: %w", in.UserID, err)
		}
		if !booked {
			continue
		}
		err = e.dir.WriteAttendanceScore(ctx, AttendanceScore{
			ClassID:  classID,
			UserID:   in.UserID,
			Score:    in.Score,
			Finished: in.Finished,
			MarkedAt: now,
		})
		if err != nil {
			return written, fmt.Errorf("saving score for user %d: %w", in.UserID, err)
		}
		written++
	}
	observability.RecordScoresWritten("coach", written)
	if skipped := len(scores) - written; skipped > 0 {
		e.log.Info("bulk scores skipped rows", "class_id", classID, "skipped", skipped)
	}
	return written, nil
}
