package importer

import (
	"fmt"
	"strings"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// SeedFile is the YAML layout of one seed file. Classes refer to workouts by
// key; keys are shared across all files of one import.
type SeedFile struct {
	Workouts []SeedWorkout `yaml:"workouts"`
	Classes  []SeedClass   `yaml:"classes"`
}

type SeedWorkout struct {
	Key              string      `yaml:"key"`
	Name             string      `yaml:"name"`
	Type             string      `yaml:"type"`
	TimeLimitMinutes int         `yaml:"time_limit_minutes"`
	NumberOfRounds   int         `yaml:"number_of_rounds"`
	Rounds           []SeedRound `yaml:"rounds"`
}

type SeedRound struct {
	Number    int            `yaml:"number"`
	Subrounds []SeedSubround `yaml:"subrounds"`
}

type SeedSubround struct {
	Number    int            `yaml:"number"`
	Exercises []SeedExercise `yaml:"exercises"`
}

type SeedExercise struct {
	Name     string `yaml:"name"`
	Position int    `yaml:"position"`
	Quantity int    `yaml:"quantity"`
	Kind     string `yaml:"kind"`
}

type SeedClass struct {
	Name            string  `yaml:"name"`
	CoachID         int64   `yaml:"coach_id"`
	Workout         string  `yaml:"workout"`
	DurationMinutes int     `yaml:"duration_minutes"`
	Members         []int64 `yaml:"members"`
}

// toWorkout converts a seed workout and checks that it flattens to at least
// one step.
func (s SeedWorkout) toWorkout() (workout.Workout, error) {
	if s.Key == "" {
		return workout.Workout{}, fmt.Errorf("workout %q: key is required", s.Name)
	}
	typ, err := workout.ParseType(strings.ReplaceAll(s.Type, "-", "_"))
	if err != nil {
		return workout.Workout{}, fmt.Errorf("workout %q: %w", s.Key, err)
	}

	w := workout.Workout{
		Name:             s.Name,
		Type:             typ,
		TimeLimitMinutes: s.TimeLimitMinutes,
		NumberOfRounds:   s.NumberOfRounds,
	}
	for _, r := range s.Rounds {
		round := workout.Round{Number: r.Number}
		for _, sr := range r.Subrounds {
			sub := workout.Subround{Number: sr.Number}
			for _, e := range sr.Exercises {
				kind, err := parseKind(e.Kind)
				if err != nil {
					return workout.Workout{}, fmt.Errorf("workout %q exercise %q: %w", s.Key, e.Name, err)
				}
				if e.Quantity < 0 {
					return workout.Workout{}, fmt.Errorf("workout %q exercise %q: negative quantity", s.Key, e.Name)
				}
				sub.Exercises = append(sub.Exercises, workout.Exercise{
					Name:     e.Name,
					Position: e.Position,
					Quantity: e.Quantity,
					Kind:     kind,
				})
			}
			round.Subrounds = append(round.Subrounds, sub)
		}
		w.Rounds = append(w.Rounds, round)
	}

	if _, _, err := workout.Flatten(w); err != nil {
		return workout.Workout{}, fmt.Errorf("workout %q: %w", s.Key, err)
	}
	return w, nil
}

func parseKind(s string) (workout.QuantityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reps":
		return workout.Reps, nil
	case "duration", "seconds":
		return workout.Duration, nil
	default:
		return "", fmt.Errorf("unknown quantity kind %q", s)
	}
}

func (c SeedClass) toClass(workoutID int64) (live.Class, error) {
	if c.CoachID <= 0 {
		return live.Class{}, fmt.Errorf("class %q: coach_id is required", c.Name)
	}
	if c.DurationMinutes < 0 {
		return live.Class{}, fmt.Errorf("class %q: negative duration", c.Name)
	}
	for _, m := range c.Members {
		if m <= 0 {
			return live.Class{}, fmt.Errorf("class %q: invalid member id %d", c.Name, m)
		}
	}
	return live.Class{
		Name:            c.Name,
		CoachID:         c.CoachID,
		WorkoutID:       workoutID,
		DurationMinutes: c.DurationMinutes,
	}, nil
}
