package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/observability"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
	"github.com/google/uuid"
)

// Engine runs live class sessions. All session, progress and interval
// mutation goes through its methods; it is safe for concurrent use.
type Engine struct {
	store   Store
	dir     Directory
	catalog *workout.Catalog
	pub     Publisher
	log     *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPublisher sets where session events are sent.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.pub = p
		}
	}
}

// New creates an Engine.
func New(store Store, dir Directory, catalog *workout.Catalog, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		dir:     dir,
		catalog: catalog,
		pub:     noopPublisher{},
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) authorizeCoach(ctx context.Context, classID, coachID int64) (Class, error) {
	if coachID <= 0 {
		return Class{}, ErrUnauthorized
	}
	class, err := e.dir.GetClass(ctx, classID)
	if err != nil {
		return Class{}, fmt.Errorf("loading class %d: %w", classID, err)
	}
	ok, err := e.dir.IsClassCoach(ctx, classID, coachID)
	if err != nil {
		return Class{}, fmt.Errorf("checking coach of class %d: %w", classID, err)
	}
	if !ok {
		return Class{}, fmt.Errorf("%w: user %d does not coach class %d", ErrForbidden, coachID, classID)
	}
	return class, nil
}

func (e *Engine) authorizeMember(ctx context.Context, classID, userID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	booked, err := e.dir.IsBooked(ctx, classID, userID)
	if err != nil {
		return fmt.Errorf("checking booking: %w", err)
	}
	if !booked {
		return fmt.Errorf("%w: user %d is not booked into class %d", ErrForbidden, userID, classID)
	}
	return nil
}

// touch loads the session and ends it first if its time cap has passed.
func (e *Engine) touch(ctx context.Context, classID int64) (*Session, error) {
	s, err := e.store.GetSession(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("loading session for class %d: %w", classID, err)
	}
	if !s.CapReached(e.now()) {
		return s, nil
	}

	ended, changed, err := e.apply(ctx, s, "auto_end", capTransition)
	if err != nil {
		return nil, err
	}
	if changed {
		observability.RecordAutoEnd()
		e.log.Info("session reached time cap", "class_id", classID, "run_id", s.RunID, "cap_seconds", *s.TimeCapSeconds)
		e.publish(ctx, EventSessionEnded, ended, map[string]any{"reason": "time_cap"})
		if err := e.finalize(ctx, ended); err != nil {
			e.log.Error("finalizing scores after time cap", "class_id", classID, "error", err)
		}
	}
	return ended, nil
}

// apply commits transition t against s with a version check. When another
// writer got there first the session is re-read; if t has nothing left to
// do the current session is returned as a no-op, otherwise ErrConflict.
func (e *Engine) apply(ctx context.Context, s *Session, op string, t transition) (*Session, bool, error) {
	next, changed, err := t(*s, e.now())
	if err != nil {
		observability.RecordTransition(op, "error")
		return nil, false, err
	}
	if !changed {
		observability.RecordTransition(op, "noop")
		return s, false, nil
	}

	err = e.store.UpdateSession(ctx, next, s.Version)
	if errors.Is(err, ErrConflict) {
		cur, gerr := e.store.GetSession(ctx, s.ClassID)
		if gerr != nil {
			return nil, false, fmt.Errorf("%s class %d: reloading session: %w", op, s.ClassID, gerr)
		}
		if _, again, terr := t(*cur, e.now()); terr == nil && !again {
			observability.RecordTransition(op, "noop")
			return cur, false, nil
		}
		observability.RecordTransition(op, "conflict")
		return nil, false, fmt.Errorf("%s class %d: %w", op, s.ClassID, ErrConflict)
	}
	if err != nil {
		observability.RecordTransition(op, "error")
		return nil, false, fmt.Errorf("%s class %d: %w", op, s.ClassID, err)
	}

	next.Version = s.Version + 1
	observability.RecordTransition(op, "applied")
	return &next, true, nil
}

func (e *Engine) publish(ctx context.Context, typ string, s *Session, data map[string]any) {
	evt := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		ClassID:    s.ClassID,
		RunID:      s.RunID,
		OccurredAt: e.now(),
		Data:       data,
	}
	if err := e.pub.Publish(ctx, evt); err != nil {
		observability.RecordPublishFailure()
		e.log.Warn("event publish failed", "type", typ, "class_id", s.ClassID, "error", err)
	}
}

// finalize writes every participant's attendance score for an ended session.
func (e *Engine) finalize(ctx context.Context, s *Session) error {
	progress, err := e.store.ListProgress(ctx, s.ClassID)
	if err != nil {
		return fmt.Errorf("listing progress: %w", err)
	}

	var sums map[int64]*intervalTotals
	if s.WorkoutType.Interval() {
		scores, err := e.store.ListIntervalScores(ctx, s.ClassID)
		if err != nil {
			return fmt.Errorf("listing interval scores: %w", err)
		}
		sums = sumIntervals(scores)
		seen := make(map[int64]bool, len(progress))
		for _, p := range progress {
			seen[p.UserID] = true
		}
		for id := range sums {
			if !seen[id] {
				progress = append(progress, Progress{ClassID: s.ClassID, UserID: id})
			}
		}
	}

	now := e.now()
	var errs []error
	written := 0
	for _, p := range progress {
		reps := 0
		if t, ok := sums[p.UserID]; ok {
			reps = t.reps
		}
		sc := finalScore(s, p, reps, now)
		if err := e.dir.WriteAttendanceScore(ctx, sc); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", p.UserID, err))
			continue
		}
		written++
	}
	observability.RecordScoresWritten("finalize", written)
	e.publish(ctx, EventScoreFinalized, s, map[string]any{"scores": written})

	if len(errs) > 0 {
		return fmt.Errorf("finalizing scores for class %d: %w", s.ClassID, errors.Join(errs...))
	}
	return nil
}

// WorkoutSteps returns the flattened steps of a workout's current version.
func (e *Engine) WorkoutSteps(ctx context.Context, workoutID int64) (*workout.Plan, error) {
	return e.catalog.Plan(ctx, workoutID)
}
