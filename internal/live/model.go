package live

import (
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// Status is the lifecycle state of a class session.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusPaused    Status = "paused"
	StatusEnded     Status = "ended"
)

// Session is the live run of one class. There is at most one per class; a
// fresh start overwrites it.
type Session struct {
	ClassID           int64          `json:"classId"`
	WorkoutID         int64          `json:"workoutId"`
	RunID             string         `json:"runId"`
	Status            Status         `json:"status"`
	WorkoutType       workout.Type   `json:"workoutType"`
	TimeCapSeconds    *int           `json:"timeCapSeconds,omitempty"`
	StartedAt         *time.Time     `json:"startedAt,omitempty"`
	PausedAt          *time.Time     `json:"pausedAt,omitempty"`
	EndedAt           *time.Time     `json:"endedAt,omitempty"`
	PauseAccumSeconds int            `json:"pauseAccumSeconds"`
	StepCount         int            `json:"stepCount"`
	Steps             []workout.Step `json:"steps"`
	CumReps           []int          `json:"cumReps"`
	CoachNotes        *string        `json:"coachNotes,omitempty"`
	Version           int64          `json:"version"`
}

// Elapsed returns the session's running seconds at now. Ended sessions are
// measured at their end time.
func (s *Session) Elapsed(now time.Time) int {
	if s.StartedAt == nil {
		return 0
	}
	if s.Status == StatusEnded && s.EndedAt != nil {
		now = *s.EndedAt
	}
	return Elapsed(now, *s.StartedAt, s.PausedAt, s.PauseAccumSeconds)
}

// CapReached reports whether a live session has run past its time cap.
func (s *Session) CapReached(now time.Time) bool {
	if s.Status != StatusLive || s.TimeCapSeconds == nil || *s.TimeCapSeconds <= 0 {
		return false
	}
	return s.Elapsed(now) >= *s.TimeCapSeconds
}

// Progress is one participant's position in a session.
type Progress struct {
	ClassID         int64      `json:"classId"`
	UserID          int64      `json:"userId"`
	CurrentStep     int        `json:"currentStep"`
	RoundsCompleted int        `json:"roundsCompleted"`
	DNFPartialReps  int        `json:"dnfPartialReps"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	FinishSeconds   *int       `json:"finishSeconds,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// IntervalScore is a participant's entry for one EMOM/TABATA interval.
type IntervalScore struct {
	ClassID       int64     `json:"classId"`
	UserID        int64     `json:"userId"`
	StepIndex     int       `json:"stepIndex"`
	Reps          int       `json:"reps"`
	Finished      bool      `json:"finished"`
	FinishSeconds *int      `json:"finishSeconds,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AttendanceScore is the finalized result stored with class attendance.
// Finished is true only when Score is a FOR_TIME finish time in seconds.
type AttendanceScore struct {
	ClassID  int64     `json:"classId"`
	UserID   int64     `json:"userId"`
	Score    int       `json:"score"`
	Finished bool      `json:"finished"`
	MarkedAt time.Time `json:"markedAt"`
}

// Class is the scheduling data the engine needs about a class.
type Class struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	CoachID         int64  `json:"coachId"`
	WorkoutID       int64  `json:"workoutId"`
	DurationMinutes int    `json:"durationMinutes"`
}

// ProgressView is what a participant sees about their own progress.
type ProgressView struct {
	ClassID         int64         `json:"classId"`
	UserID          int64         `json:"userId"`
	Status          Status        `json:"status"`
	WorkoutType     workout.Type  `json:"workoutType"`
	StepCount       int           `json:"stepCount"`
	CurrentStep     int           `json:"currentStep"`
	RoundsCompleted int           `json:"roundsCompleted"`
	DNFPartialReps  int           `json:"dnfPartialReps"`
	TotalReps       int           `json:"totalReps"`
	Finished        bool          `json:"finished"`
	FinishSeconds   *int          `json:"finishSeconds,omitempty"`
	CurrentExercise *workout.Step `json:"currentExercise,omitempty"`
	ElapsedSeconds  int           `json:"elapsedSeconds"`
	TimeCapSeconds  *int          `json:"timeCapSeconds,omitempty"`
}

// ScoreInput is one row of a coach's bulk score submission.
type ScoreInput struct {
	UserID   int64 `json:"userId"`
	Score    int   `json:"score"`
	Finished bool  `json:"finished"`
}
