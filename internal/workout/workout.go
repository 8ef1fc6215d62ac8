package workout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyWorkout is returned when a workout flattens to zero steps.
var ErrEmptyWorkout = errors.New("workout has no steps")

// Type is the scoring format of a workout.
type Type string

const (
	ForTime Type = "FOR_TIME"
	AMRAP   Type = "AMRAP"
	EMOM    Type = "EMOM"
	Tabata  Type = "TABATA"
)

// ParseType normalizes a workout type string.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case ForTime, AMRAP, EMOM, Tabata:
		return t, nil
	default:
		return "", fmt.Errorf("unknown workout type %q", s)
	}
}

// Interval reports whether the type is scored per interval rather than by position.
func (t Type) Interval() bool {
	return t == EMOM || t == Tabata
}

// QuantityKind says whether a step's quantity counts reps or seconds.
type QuantityKind string

const (
	Reps     QuantityKind = "reps"
	Duration QuantityKind = "duration"
)

type Exercise struct {
	Name     string       `json:"name"`
	Position int          `json:"position"`
	Quantity int          `json:"quantity"`
	Kind     QuantityKind `json:"kind"`
}

type Subround struct {
	Number    int        `json:"number"`
	Exercises []Exercise `json:"exercises"`
}

type Round struct {
	Number    int        `json:"number"`
	Subrounds []Subround `json:"subrounds"`
}

// Workout is the authored round/subround/exercise tree. Version changes
// whenever the structure is edited.
type Workout struct {
	ID               int64   `json:"id"`
	Version          int64   `json:"version"`
	Name             string  `json:"name"`
	Type             Type    `json:"type"`
	TimeLimitMinutes int     `json:"timeLimitMinutes,omitempty"`
	NumberOfRounds   int     `json:"numberOfRounds,omitempty"`
	Rounds           []Round `json:"rounds"`
}

// Step is one exercise in flattened execution order.
type Step struct {
	Index        int          `json:"index"`
	ExerciseName string       `json:"exerciseName"`
	Quantity     int          `json:"quantity"`
	Round        int          `json:"round"`
	Subround     int          `json:"subround"`
	Kind         QuantityKind `json:"kind"`
}

// Flatten orders the tree by round, subround and exercise position and
// returns the steps with their cumulative rep counts. Exercises sharing a
// position keep their input order.
func Flatten(w Workout) ([]Step, []int, error) {
	rounds := expandRounds(w)

	var steps []Step
	var cum []int
	total := 0
	for _, r := range rounds {
		subs := make([]Subround, len(r.Subrounds))
		copy(subs, r.Subrounds)
		sort.SliceStable(subs, func(i, j int) bool { return subs[i].Number < subs[j].Number })

		for _, sr := range subs {
			exs := make([]Exercise, len(sr.Exercises))
			copy(exs, sr.Exercises)
			sort.SliceStable(exs, func(i, j int) bool { return exs[i].Position < exs[j].Position })

			for _, ex := range exs {
				kind := ex.Kind
				if kind == "" {
					kind = Reps
				}
				if kind == Reps && ex.Quantity > 0 {
					total += ex.Quantity
				}
				steps = append(steps, Step{
					Index:        len(steps),
					ExerciseName: ex.Name,
					Quantity:     ex.Quantity,
					Round:        r.Number,
					Subround:     sr.Number,
					Kind:         kind,
				})
				cum = append(cum, total)
			}
		}
	}

	if len(steps) == 0 {
		return nil, nil, ErrEmptyWorkout
	}
	return steps, cum, nil
}

// expandRounds sorts rounds and, for FOR_TIME and TABATA templates authored
// as a single round, repeats that round NumberOfRounds times.
func expandRounds(w Workout) []Round {
	rounds := make([]Round, len(w.Rounds))
	copy(rounds, w.Rounds)
	sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].Number < rounds[j].Number })

	if len(rounds) != 1 || w.NumberOfRounds <= 1 {
		return rounds
	}
	if w.Type != ForTime && w.Type != Tabata {
		return rounds
	}

	out := make([]Round, 0, w.NumberOfRounds)
	for i := 0; i < w.NumberOfRounds; i++ {
		r := rounds[0]
		r.Number = i + 1
		out = append(out, r)
	}
	return out
}

// RepsBefore returns the reps completed before step index step, i.e. the
// cumulative reps of steps [0, step).
func RepsBefore(cum []int, step int) int {
	if step <= 0 || len(cum) == 0 {
		return 0
	}
	if step > len(cum) {
		step = len(cum)
	}
	return cum[step-1]
}

// RepsPerRound is the rep total of one pass through the steps.
func RepsPerRound(cum []int) int {
	if len(cum) == 0 {
		return 0
	}
	return cum[len(cum)-1]
}
