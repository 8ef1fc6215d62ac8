package live

import (
	"fmt"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// advance moves p one step in direction dir (+1 or -1) according to the
// session's workout type. Any effective move clears partial reps.
func advance(s *Session, p *Progress, dir int, now time.Time) error {
	if dir != 1 && dir != -1 {
		return ErrInvalidDirection
	}
	if p.CurrentStep < 0 {
		p.CurrentStep = 0
	}
	if p.CurrentStep > s.StepCount {
		p.CurrentStep = s.StepCount
	}

	switch s.WorkoutType {
	case workout.ForTime:
		advanceForTime(s, p, dir, now)
	case workout.AMRAP:
		advanceAMRAP(s, p, dir)
	default:
		return fmt.Errorf("%w: advance is not supported for %s", ErrWrongWorkoutType, s.WorkoutType)
	}
	p.UpdatedAt = now
	return nil
}

func advanceForTime(s *Session, p *Progress, dir int, now time.Time) {
	if dir > 0 {
		if p.CurrentStep >= s.StepCount {
			return
		}
		p.CurrentStep++
		p.DNFPartialReps = 0
		if p.CurrentStep == s.StepCount && p.FinishedAt == nil {
			t := now
			secs := s.Elapsed(now)
			p.FinishedAt = &t
			p.FinishSeconds = &secs
		}
		return
	}

	if p.CurrentStep <= 0 {
		return
	}
	p.CurrentStep--
	p.DNFPartialReps = 0
	p.FinishedAt = nil
	p.FinishSeconds = nil
}

func advanceAMRAP(s *Session, p *Progress, dir int) {
	if dir > 0 {
		p.CurrentStep++
		if p.CurrentStep >= s.StepCount {
			p.CurrentStep = 0
			p.RoundsCompleted++
		}
		p.DNFPartialReps = 0
		return
	}

	switch {
	case p.CurrentStep > 0:
		p.CurrentStep--
	case p.RoundsCompleted > 0:
		p.RoundsCompleted--
		p.CurrentStep = s.StepCount - 1
	default:
		return
	}
	p.DNFPartialReps = 0
}

// totalReps converts a participant's position into reps using the
// session's cumulative reps.
func totalReps(s *Session, p Progress) int {
	reps := workout.RepsBefore(s.CumReps, p.CurrentStep) + p.DNFPartialReps
	if s.WorkoutType == workout.AMRAP {
		reps += p.RoundsCompleted * workout.RepsPerRound(s.CumReps)
	}
	return reps
}

// amrapPosition maps a total rep count back onto rounds, step and partial
// reps so that totalReps returns total again.
func amrapPosition(cum []int, total int) (rounds, step, partial int) {
	perRound := workout.RepsPerRound(cum)
	if perRound <= 0 {
		return 0, 0, total
	}
	rounds = total / perRound
	rem := total % perRound
	for step < len(cum) && cum[step] <= rem {
		step++
	}
	return rounds, step, rem - workout.RepsBefore(cum, step)
}

// finalScore is the attendance result for a participant at session end.
func finalScore(s *Session, p Progress, intervalReps int, now time.Time) AttendanceScore {
	score := AttendanceScore{ClassID: s.ClassID, UserID: p.UserID, MarkedAt: now}
	switch {
	case s.WorkoutType.Interval():
		score.Score = intervalReps
	case s.WorkoutType == workout.ForTime && p.FinishSeconds != nil:
		score.Score = *p.FinishSeconds
		score.Finished = true
	default:
		score.Score = totalReps(s, p)
	}
	return score
}

func view(s *Session, p Progress, intervalReps int, now time.Time) ProgressView {
	v := ProgressView{
		ClassID:         s.ClassID,
		UserID:          p.UserID,
		Status:          s.Status,
		WorkoutType:     s.WorkoutType,
		StepCount:       s.StepCount,
		CurrentStep:     p.CurrentStep,
		RoundsCompleted: p.RoundsCompleted,
		DNFPartialReps:  p.DNFPartialReps,
		Finished:        p.FinishedAt != nil,
		FinishSeconds:   p.FinishSeconds,
		ElapsedSeconds:  s.Elapsed(now),
		TimeCapSeconds:  s.TimeCapSeconds,
	}
	if s.WorkoutType.Interval() {
		v.TotalReps = intervalReps
	} else {
		v.TotalReps = totalReps(s, p)
	}
	if p.CurrentStep >= 0 && p.CurrentStep < len(s.Steps) {
		step := s.Steps[p.CurrentStep]
		v.CurrentExercise = &step
	}
	return v
}
