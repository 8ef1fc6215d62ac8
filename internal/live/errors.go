package live

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the caller carried no identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller lacks the role or ownership for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the class, workout or session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput covers malformed arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotStarted means a participant write arrived while the session was not live.
	ErrSessionNotStarted = errors.New("session not started")
	// ErrNotIntervalWorkout means an interval operation hit a FOR_TIME or AMRAP session.
	ErrNotIntervalWorkout = errors.New("not an interval workout")
	// ErrWrongWorkoutType means the operation does not apply to the session's workout type.
	ErrWrongWorkoutType = errors.New("wrong workout type for operation")
	// ErrConflict means a concurrent write won and the requested state was not applied.
	ErrConflict = errors.New("conflict")
)

var (
	ErrInvalidStepIndex = fmt.Errorf("%w: step index out of range", ErrInvalidInput)
	ErrInvalidDirection = fmt.Errorf("%w: direction must be 1 or -1", ErrInvalidInput)
)
