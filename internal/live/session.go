package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/observability"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
	"github.com/google/uuid"
)

func timeCap(plan *workout.Plan, class Class) *int {
	var secs int
	switch {
	case plan.TimeLimitMinutes > 0:
		secs = plan.TimeLimitMinutes * 60
	case class.DurationMinutes > 0:
		secs = class.DurationMinutes * 60
	default:
		return nil
	}
	return &secs
}

// StartSession puts a class live. A session that is already live or paused
// is returned unchanged; an ended one is replaced by a fresh run, which
// resets every participant's progress.
func (e *Engine) StartSession(ctx context.Context, classID, coachID int64) (*Session, error) {
	class, err := e.authorizeCoach(ctx, classID, coachID)
	if err != nil {
		return nil, err
	}

	var expect int64
	cur, err := e.touch(ctx, classID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	case cur.Status == StatusLive || cur.Status == StatusPaused:
		observability.RecordTransition("start", "noop")
		return cur, nil
	default:
		expect = cur.Version
	}

	plan, err := e.catalog.Plan(ctx, class.WorkoutID)
	if err != nil {
		return nil, fmt.Errorf("preparing workout %d: %w", class.WorkoutID, err)
	}
	if plan.Type == "" {
		return nil, fmt.Errorf("%w: workout %d has no type", ErrInvalidInput, class.WorkoutID)
	}
	members, err := e.dir.BookedMembers(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("listing booked members: %w", err)
	}

	now := e.now()
	s := Session{
		ClassID:        classID,
		WorkoutID:      class.WorkoutID,
		RunID:          uuid.NewString(),
		Status:         StatusLive,
		WorkoutType:    plan.Type,
		TimeCapSeconds: timeCap(plan, class),
		StartedAt:      &now,
		StepCount:      len(plan.Steps),
		Steps:          plan.Steps,
		CumReps:        plan.CumReps,
	}

	if err := e.store.CreateRun(ctx, s, expect, members); err != nil {
		if !errors.Is(err, ErrConflict) {
			observability.RecordTransition("start", "error")
			return nil, fmt.Errorf("starting class %d: %w", classID, err)
		}
		latest, gerr := e.store.GetSession(ctx, classID)
		if gerr == nil && (latest.Status == StatusLive || latest.Status == StatusPaused) {
			observability.RecordTransition("start", "noop")
			return latest, nil
		}
		observability.RecordTransition("start", "conflict")
		return nil, fmt.Errorf("starting class %d: %w", classID, ErrConflict)
	}
	s.Version = expect + 1
	observability.RecordTransition("start", "applied")

	e.log.Info("session started",
		"class_id", classID,
		"run_id", s.RunID,
		"workout_id", s.WorkoutID,
		"workout_type", s.WorkoutType,
		"steps", s.StepCount,
		"members", len(members),
	)
	e.publish(ctx, EventSessionStarted, &s, map[string]any{
		"workoutId":   s.WorkoutID,
		"workoutType": s.WorkoutType,
		"stepCount":   s.StepCount,
		"members":     len(members),
	})
	return &s, nil
}

func (e *Engine) coachTransition(ctx context.Context, classID, coachID int64, op string, t transition, event string) (*Session, bool, error) {
	if _, err := e.authorizeCoach(ctx, classID, coachID); err != nil {
		return nil, false, err
	}
	s, err := e.touch(ctx, classID)
	if err != nil {
		return nil, false, err
	}
	next, changed, err := e.apply(ctx, s, op, t)
	if err != nil {
		return nil, false, err
	}
	if changed {
		e.log.Info("session "+op, "class_id", classID, "run_id", next.RunID, "status", next.Status)
		e.publish(ctx, event, next, map[string]any{"elapsedSeconds": next.Elapsed(e.now())})
	}
	return next, changed, nil
}

// PauseSession freezes the session clock.
func (e *Engine) PauseSession(ctx context.Context, classID, coachID int64) (*Session, error) {
	s, _, err := e.coachTransition(ctx, classID, coachID, "pause", pauseTransition, EventSessionPaused)
	return s, err
}

// ResumeSession restarts the clock, adding the pause to the accumulator.
func (e *Engine) ResumeSession(ctx context.Context, classID, coachID int64) (*Session, error) {
	s, _, err := e.coachTransition(ctx, classID, coachID, "resume", resumeTransition, EventSessionResumed)
	return s, err
}

// StopSession ends the session and finalizes attendance scores. Stopping
// an ended session succeeds without finalizing again.
func (e *Engine) StopSession(ctx context.Context, classID, coachID int64) (*Session, error) {
	s, changed, err := e.coachTransition(ctx, classID, coachID, "stop", endTransition, EventSessionEnded)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := e.finalize(ctx, s); err != nil {
			return s, err
		}
	}
	return s, nil
}

// GetSessionState returns the class's session, or nil if it has never been
// started.
func (e *Engine) GetSessionState(ctx context.Context, classID int64) (*Session, error) {
	s, err := e.touch(ctx, classID)
	if errors.Is(err, ErrNotFound) {
		if _, cerr := e.dir.GetClass(ctx, classID); cerr != nil {
			return nil, fmt.Errorf("loading class %d: %w", classID, cerr)
		}
		return nil, nil
	}
	return s, err
}

// SetCoachNotes replaces the session's coach notes. An empty string clears them.
func (e *Engine) SetCoachNotes(ctx context.Context, classID, coachID int64, notes string) (*Session, error) {
	if _, err := e.authorizeCoach(ctx, classID, coachID); err != nil {
		return nil, err
	}
	s, err := e.touch(ctx, classID)
	if err != nil {
		return nil, err
	}
	next, _, err := e.apply(ctx, s, "notes", func(s Session, _ time.Time) (Session, bool, error) {
		cur := ""
		if s.CoachNotes != nil {
			cur = *s.CoachNotes
		}
		if cur == notes {
			return s, false, nil
		}
		if notes == "" {
			s.CoachNotes = nil
		} else {
			n := notes
			s.CoachNotes = &n
		}
		return s, true, nil
	})
	return next, err
}
