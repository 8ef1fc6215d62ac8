package live

import "time"

// Elapsed returns whole seconds of running time. While paused the clock is
// frozen at pausedAt. The result is never negative.
func Elapsed(now, startedAt time.Time, pausedAt *time.Time, pauseAccumSeconds int) int {
	end := now
	if pausedAt != nil {
		end = *pausedAt
	}
	secs := int(end.Sub(startedAt)/time.Second) - pauseAccumSeconds
	if secs < 0 {
		return 0
	}
	return secs
}

// pauseSeconds is the whole seconds between pausedAt and now, floored at 0.
func pauseSeconds(now, pausedAt time.Time) int {
	d := int(now.Sub(pausedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
