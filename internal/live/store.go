package live

import (
	"context"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// Store persists sessions, progress and interval scores. Implementations
// return ErrNotFound for missing rows and ErrConflict when a versioned
// write loses.
type Store interface {
	GetSession(ctx context.Context, classID int64) (*Session, error)

	// CreateRun replaces the class's session with s if the stored version
	// still equals expectVersion (0 when no row exists). In the same
	// transaction it deletes the class's progress and interval rows and
	// seeds a zeroed progress row per member. The new row gets version
	// expectVersion+1.
	CreateRun(ctx context.Context, s Session, expectVersion int64, members []int64) error

	// UpdateSession writes s if the stored version equals expectVersion and
	// bumps the version by one.
	UpdateSession(ctx context.Context, s Session, expectVersion int64) error

	GetProgress(ctx context.Context, classID, userID int64) (*Progress, error)
	ListProgress(ctx context.Context, classID int64) ([]Progress, error)

	// UpdateProgress runs fn on the participant's row under a row lock and
	// writes the result. A missing row starts from zero values. If fn
	// returns an error nothing is written.
	UpdateProgress(ctx context.Context, classID, userID int64, fn func(p *Progress) error) (Progress, error)

	UpsertIntervalReps(ctx context.Context, classID, userID int64, stepIndex, reps int, at time.Time) error
	UpsertIntervalMark(ctx context.Context, classID, userID int64, stepIndex int, finished bool, finishSeconds *int, at time.Time) error
	ListIntervalScores(ctx context.Context, classID int64) ([]IntervalScore, error)
}

// Directory is the engine's view of the booking, class and attendance
// systems it does not own.
type Directory interface {
	workout.Source

	GetClass(ctx context.Context, classID int64) (Class, error)
	IsClassCoach(ctx context.Context, classID, coachID int64) (bool, error)
	IsBooked(ctx context.Context, classID, userID int64) (bool, error)
	BookedMembers(ctx context.Context, classID int64) ([]int64, error)
	WriteAttendanceScore(ctx context.Context, score AttendanceScore) error
	AttendanceScores(ctx context.Context, classID int64) ([]AttendanceScore, error)
}

// Event types published on session changes.
const (
	EventSessionStarted = "session.started"
	EventSessionPaused  = "session.paused"
	EventSessionResumed = "session.resumed"
	EventSessionEnded   = "session.ended"
	EventScoreFinalized = "score.finalized"
)

// Event describes a change other systems may react to.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ClassID    int64          `json:"classId"`
	RunID      string         `json:"runId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher delivers events. Delivery failures are logged, never returned
// to engine callers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
