package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liveclass",
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Coach session transitions by operation and result (applied, noop, conflict, error).",
	}, []string{"op", "result"})
	sessionAutoEnded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liveclass",
		Subsystem: "session",
		Name:      "auto_ended_total",
		Help:      "Sessions ended because their time cap was reached.",
	})
	progressUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liveclass",
		Subsystem: "progress",
		Name:      "updates_total",
		Help:      "Participant progress writes by workout type and operation.",
	}, []string{"workout_type", "op"})
	scoresFinalized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liveclass",
		Subsystem: "attendance",
		Name:      "scores_written_total",
		Help:      "Attendance scores written by source (finalize, coach, member).",
	}, []string{"source"})
	leaderboardDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "liveclass",
		Subsystem: "leaderboard",
		Name:      "compute_duration_seconds",
		Help:      "Time to load and rank a leaderboard.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"kind"})
	stepCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liveclass",
		Subsystem: "step_cache",
		Name:      "lookups_total",
		Help:      "Flattened workout cache lookups by result.",
	}, []string{"result"})
	eventPublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "liveclass",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Session events that could not be delivered.",
	})
)

func init() {
	prometheus.MustRegister(
		sessionTransitions,
		sessionAutoEnded,
		progressUpdates,
		scoresFinalized,
		leaderboardDuration,
		stepCacheLookups,
		eventPublishFailures,
	)
}

// RecordTransition counts a coach transition outcome.
func RecordTransition(op, result string) {
	sessionTransitions.WithLabelValues(op, result).Inc()
}

// RecordAutoEnd counts a time-cap expiry.
func RecordAutoEnd() {
	sessionAutoEnded.Inc()
}

// RecordProgressUpdate counts a participant progress write.
func RecordProgressUpdate(workoutType, op string) {
	progressUpdates.WithLabelValues(workoutType, op).Inc()
}

// RecordScoresWritten counts attendance scores written.
func RecordScoresWritten(source string, n int) {
	if n <= 0 {
		return
	}
	scoresFinalized.WithLabelValues(source).Add(float64(n))
}

// ObserveLeaderboard records how long a leaderboard took since start.
func ObserveLeaderboard(kind string, start time.Time) {
	leaderboardDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// RecordStepCacheLookup counts a step cache hit or miss.
func RecordStepCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	stepCacheLookups.WithLabelValues(result).Inc()
}

// RecordPublishFailure counts an undelivered event.
func RecordPublishFailure() {
	eventPublishFailures.Inc()
}
