package live

import (
	"fmt"
	"time"
)

// transition computes the session after a coach action at now. changed is
// false when the session is already in the target state.
type transition func(s Session, now time.Time) (next Session, changed bool, err error)

func pauseTransition(s Session, now time.Time) (Session, bool, error) {
	switch s.Status {
	case StatusPaused:
		return s, false, nil
	case StatusLive:
		t := now
		s.Status = StatusPaused
		s.PausedAt = &t
		return s, true, nil
	case StatusEnded:
		return s, false, fmt.Errorf("%w: session already ended", ErrConflict)
	default:
		return s, false, ErrSessionNotStarted
	}
}

func resumeTransition(s Session, now time.Time) (Session, bool, error) {
	switch s.Status {
	case StatusLive:
		return s, false, nil
	case StatusPaused:
		if s.PausedAt != nil {
			s.PauseAccumSeconds += pauseSeconds(now, *s.PausedAt)
		}
		s.PausedAt = nil
		s.Status = StatusLive
		return s, true, nil
	case StatusEnded:
		return s, false, fmt.Errorf("%w: session already ended", ErrConflict)
	default:
		return s, false, ErrSessionNotStarted
	}
}

// endTransition ends any non-ended session. A paused session folds its
// open pause into the accumulator so pausedAt is only set while paused.
func endTransition(s Session, now time.Time) (Session, bool, error) {
	if s.Status == StatusEnded {
		return s, false, nil
	}
	if s.Status == StatusPaused && s.PausedAt != nil {
		s.PauseAccumSeconds += pauseSeconds(now, *s.PausedAt)
	}
	t := now
	s.PausedAt = nil
	s.EndedAt = &t
	s.Status = StatusEnded
	return s, true, nil
}

// capTransition ends the session only if its time cap has been reached.
// The end instant is the cap itself, not the moment the expiry was noticed.
func capTransition(s Session, now time.Time) (Session, bool, error) {
	if !s.CapReached(now) {
		return s, false, nil
	}
	end := s.StartedAt.Add(time.Duration(*s.TimeCapSeconds+s.PauseAccumSeconds) * time.Second)
	if end.After(now) {
		end = now
	}
	return endTransition(s, end)
}
