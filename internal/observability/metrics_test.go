package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(sessionTransitions.WithLabelValues("pause", "applied"))
	RecordTransition("pause", "applied")
	RecordTransition("pause", "applied")
	if got := testutil.ToFloat64(sessionTransitions.WithLabelValues("pause", "applied")); got != before+2 {
		t.Errorf("pause/applied = %v, want %v", got, before+2)
	}
}

func TestRecordScoresWrittenIgnoresEmpty(t *testing.T) {
	before := testutil.ToFloat64(scoresFinalized.WithLabelValues("coach"))
	RecordScoresWritten("coach", 0)
	RecordScoresWritten("coach", 3)
	if got := testutil.ToFloat64(scoresFinalized.WithLabelValues("coach")); got != before+3 {
		t.Errorf("coach scores = %v, want %v", got, before+3)
	}
}

func TestRecordStepCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(stepCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(stepCacheLookups.WithLabelValues("miss"))
	RecordStepCacheLookup(true)
	RecordStepCacheLookup(false)
	RecordStepCacheLookup(false)
	if got := testutil.ToFloat64(stepCacheLookups.WithLabelValues("hit")); got != hits+1 {
		t.Errorf("hits = %v, want %v", got, hits+1)
	}
	if got := testutil.ToFloat64(stepCacheLookups.WithLabelValues("miss")); got != misses+2 {
		t.Errorf("misses = %v, want %v", got, misses+2)
	}
}

func TestObserveLeaderboard(t *testing.T) {
	ObserveLeaderboard("live", time.Now())
	if n := testutil.CollectAndCount(leaderboardDuration); n == 0 {
		t.Error("expected leaderboard histogram series")
	}
}
