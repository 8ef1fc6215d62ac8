package live

import (
	"fmt"
	"sort"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// LeaderboardRow is one ranked participant.
type LeaderboardRow struct {
	Rank            int    `json:"rank"`
	UserID          int64  `json:"userId"`
	Finished        bool   `json:"finished"`
	ElapsedSeconds  *int   `json:"elapsedSeconds,omitempty"`
	CurrentStep     int    `json:"currentStep"`
	RoundsCompleted int    `json:"roundsCompleted"`
	PartialReps     int    `json:"partialReps"`
	TotalReps       int    `json:"totalReps"`
	Score           int    `json:"score"`
	Display         string `json:"display"`
}

func rank(rows []LeaderboardRow) []LeaderboardRow {
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func clock(secs int) string {
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func repsLabel(n int) string {
	return fmt.Sprintf("%d reps", n)
}

// rankForTime puts finishers first by ascending time, then everyone else
// by how far they got.
func rankForTime(s *Session, progress []Progress) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(progress))
	for _, p := range progress {
		r := LeaderboardRow{
			UserID:      p.UserID,
			CurrentStep: p.CurrentStep,
			PartialReps: p.DNFPartialReps,
			TotalReps:   totalReps(s, p),
		}
		if p.FinishSeconds != nil {
			secs := *p.FinishSeconds
			r.Finished = true
			r.ElapsedSeconds = &secs
			r.Score = secs
			r.Display = clock(secs)
		} else {
			r.Score = r.TotalReps
			r.Display = repsLabel(r.TotalReps)
		}
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Finished != b.Finished {
			return a.Finished
		}
		if a.Finished {
			if *a.ElapsedSeconds != *b.ElapsedSeconds {
				return *a.ElapsedSeconds < *b.ElapsedSeconds
			}
			return a.UserID < b.UserID
		}
		if a.CurrentStep != b.CurrentStep {
			return a.CurrentStep > b.CurrentStep
		}
		if a.PartialReps != b.PartialReps {
			return a.PartialReps > b.PartialReps
		}
		return a.UserID < b.UserID
	})
	return rank(rows)
}

func rankAMRAP(s *Session, progress []Progress) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(progress))
	for _, p := range progress {
		total := totalReps(s, p)
		rows = append(rows, LeaderboardRow{
			UserID:          p.UserID,
			CurrentStep:     p.CurrentStep,
			RoundsCompleted: p.RoundsCompleted,
			PartialReps:     p.DNFPartialReps,
			TotalReps:       total,
			Score:           total,
			Display:         repsLabel(total),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalReps != rows[j].TotalReps {
			return rows[i].TotalReps > rows[j].TotalReps
		}
		return rows[i].UserID < rows[j].UserID
	})
	return rank(rows)
}

type intervalTotals struct {
	reps     int
	finished int
}

func sumIntervals(scores []IntervalScore) map[int64]*intervalTotals {
	out := make(map[int64]*intervalTotals)
	for _, sc := range scores {
		t, ok := out[sc.UserID]
		if !ok {
			t = &intervalTotals{}
			out[sc.UserID] = t
		}
		t.reps += sc.Reps
		if sc.Finished {
			t.finished++
		}
	}
	return out
}

// rankIntervals sums interval reps per participant. Participants in
// members without any interval rows are listed with zero.
func rankIntervals(members []int64, scores []IntervalScore) []LeaderboardRow {
	totals := sumIntervals(scores)
	for _, id := range members {
		if _, ok := totals[id]; !ok {
			totals[id] = &intervalTotals{}
		}
	}

	rows := make([]LeaderboardRow, 0, len(totals))
	finished := make(map[int64]int, len(totals))
	for id, t := range totals {
		finished[id] = t.finished
		rows = append(rows, LeaderboardRow{
			UserID:    id,
			TotalReps: t.reps,
			Score:     t.reps,
			Display:   repsLabel(t.reps),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TotalReps != b.TotalReps {
			return a.TotalReps > b.TotalReps
		}
		if finished[a.UserID] != finished[b.UserID] {
			return finished[a.UserID] > finished[b.UserID]
		}
		return a.UserID < b.UserID
	})
	return rank(rows)
}

// rankFinal orders finalized attendance scores. FOR_TIME finish times rank
// ahead of DNF rep counts and ascend; every other score descends.
func rankFinal(t workout.Type, scores []AttendanceScore) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(scores))
	for _, sc := range scores {
		r := LeaderboardRow{UserID: sc.UserID, Score: sc.Score}
		if t == workout.ForTime && sc.Finished {
			secs := sc.Score
			r.Finished = true
			r.ElapsedSeconds = &secs
			r.Display = clock(secs)
		} else {
			r.TotalReps = sc.Score
			r.Display = repsLabel(sc.Score)
		}
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Finished != b.Finished {
			return a.Finished
		}
		if a.Score != b.Score {
			if a.Finished {
				return a.Score < b.Score
			}
			return a.Score > b.Score
		}
		return a.UserID < b.UserID
	})
	return rank(rows)
}
