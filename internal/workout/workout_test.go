package workout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func sample() Workout {
	return Workout{
		ID:      7,
		Version: 1,
		Type:    AMRAP,
		Rounds: []Round{{
			Number: 1,
			Subrounds: []Subround{{
				Number: 1,
				Exercises: []Exercise{
					{Name: "burpees", Position: 1, Quantity: 10, Kind: Reps},
					{Name: "plank", Position: 2, Quantity: 30, Kind: Duration},
					{Name: "air squats", Position: 3, Quantity: 15, Kind: Reps},
				},
			}},
		}},
	}
}

// TestFlattenCumReps covers the [reps, duration, reps] example: duration
// steps advance position without adding reps.
func TestFlattenCumReps(t *testing.T) {
	steps, cum, err := Flatten(sample())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("len(steps) = %d, want 3", len(steps))
	}
	want := []int{10, 10, 25}
	for i := range want {
		if cum[i] != want[i] {
			t.Errorf("cum[%d] = %d, want %d", i, cum[i], want[i])
		}
	}
	if steps[1].Kind != Duration {
		t.Errorf("steps[1].Kind = %q, want %q", steps[1].Kind, Duration)
	}
	for i, s := range steps {
		if s.Index != i {
			t.Errorf("steps[%d].Index = %d", i, s.Index)
		}
	}
}

// TestFlattenOrdering verifies round, subround and position ordering, with
// input order kept for equal positions.
func TestFlattenOrdering(t *testing.T) {
	w := Workout{
		Type: ForTime,
		Rounds: []Round{
			{Number: 2, Subrounds: []Subround{{Number: 1, Exercises: []Exercise{{Name: "r2", Position: 1, Quantity: 1}}}}},
			{Number: 1, Subrounds: []Subround{
				{Number: 2, Exercises: []Exercise{{Name: "r1s2", Position: 1, Quantity: 1}}},
				{Number: 1, Exercises: []Exercise{
					{Name: "b", Position: 2, Quantity: 1},
					{Name: "tie-first", Position: 1, Quantity: 1},
					{Name: "tie-second", Position: 1, Quantity: 1},
				}},
			}},
		},
	}

	steps, _, err := Flatten(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"tie-first", "tie-second", "b", "r1s2", "r2"}
	if len(steps) != len(want) {
		t.Fatalf("len(steps) = %d, want %d", len(steps), len(want))
	}
	for i, name := range want {
		if steps[i].ExerciseName != name {
			t.Errorf("steps[%d] = %q, want %q", i, steps[i].ExerciseName, name)
		}
	}
	// Input tree must not be reordered in place.
	if w.Rounds[0].Number != 2 {
		t.Error("Flatten mutated the input rounds")
	}
}

// TestFlattenCumRepsMonotonic checks the cumulative vector is non-decreasing
// and ends at the sum of rep quantities.
func TestFlattenCumRepsMonotonic(t *testing.T) {
	tests := []struct {
		name string
		exs  []Exercise
		sum  int
	}{
		{"all reps", []Exercise{{Quantity: 5}, {Quantity: 7}, {Quantity: 1}}, 13},
		{"all duration", []Exercise{{Quantity: 60, Kind: Duration}, {Quantity: 30, Kind: Duration}}, 0},
		{"mixed", []Exercise{{Quantity: 3}, {Quantity: 45, Kind: Duration}, {Quantity: 0}, {Quantity: 12}}, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := range tt.exs {
				tt.exs[i].Position = i
			}
			w := Workout{Rounds: []Round{{Number: 1, Subrounds: []Subround{{Number: 1, Exercises: tt.exs}}}}}
			_, cum, err := Flatten(w)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i := 1; i < len(cum); i++ {
				if cum[i] < cum[i-1] {
					t.Errorf("cum[%d] = %d < cum[%d] = %d", i, cum[i], i-1, cum[i-1])
				}
			}
			if got := RepsPerRound(cum); got != tt.sum {
				t.Errorf("final cum = %d, want %d", got, tt.sum)
			}
		})
	}
}

func TestFlattenEmpty(t *testing.T) {
	_, _, err := Flatten(Workout{Rounds: []Round{{Number: 1}}})
	if !errors.Is(err, ErrEmptyWorkout) {
		t.Errorf("err = %v, want ErrEmptyWorkout", err)
	}
}

// TestFlattenExpandsSingleRoundTemplate verifies FOR_TIME templates with
// NumberOfRounds are repeated, while AMRAP workouts are not.
func TestFlattenExpandsSingleRoundTemplate(t *testing.T) {
	w := sample()
	w.NumberOfRounds = 3

	w.Type = ForTime
	steps, cum, err := Flatten(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 9 {
		t.Errorf("FOR_TIME len(steps) = %d, want 9", len(steps))
	}
	if steps[8].Round != 3 {
		t.Errorf("last step round = %d, want 3", steps[8].Round)
	}
	if RepsPerRound(cum) != 75 {
		t.Errorf("total reps = %d, want 75", RepsPerRound(cum))
	}

	w.Type = AMRAP
	steps, _, _ = Flatten(w)
	if len(steps) != 3 {
		t.Errorf("AMRAP len(steps) = %d, want 3", len(steps))
	}
}

func TestRepsBefore(t *testing.T) {
	cum := []int{10, 10, 25}
	tests := []struct {
		step int
		want int
	}{
		{-1, 0}, {0, 0}, {1, 10}, {2, 10}, {3, 25}, {9, 25},
	}
	for _, tt := range tests {
		if got := RepsBefore(cum, tt.step); got != tt.want {
			t.Errorf("RepsBefore(%d) = %d, want %d", tt.step, got, tt.want)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"FOR_TIME", ForTime, false},
		{"amrap", AMRAP, false},
		{" emom ", EMOM, false},
		{"Tabata", Tabata, false},
		{"ladder", "", true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type fakeSource struct {
	w     Workout
	loads int
}

func (f *fakeSource) WorkoutVersion(_ context.Context, _ int64) (int64, error) {
	return f.w.Version, nil
}

func (f *fakeSource) GetWorkoutStructure(_ context.Context, _ int64) (Workout, error) {
	f.loads++
	return f.w, nil
}

// TestCatalogCachesByVersion verifies a plan is loaded once per version.
func TestCatalogCachesByVersion(t *testing.T) {
	src := &fakeSource{w: sample()}
	var hits, misses int
	c := NewCatalog(src, 1<<20, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.OnLookup = func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := c.Plan(ctx, 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(p.Steps) != 3 || RepsPerRound(p.CumReps) != 25 {
			t.Fatalf("plan = %+v", p)
		}
	}
	if src.loads != 1 {
		t.Errorf("loads = %d, want 1", src.loads)
	}
	if hits != 2 || misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 2/1", hits, misses)
	}

	// Editing the structure bumps the version and forces a reload.
	src.w.Version = 2
	src.w.Rounds[0].Subrounds[0].Exercises = src.w.Rounds[0].Subrounds[0].Exercises[:1]
	p, err := c.Plan(ctx, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Steps) != 1 {
		t.Errorf("len(steps) after edit = %d, want 1", len(p.Steps))
	}
	if src.loads != 2 {
		t.Errorf("loads = %d, want 2", src.loads)
	}
}

func TestCatalogEmptyWorkout(t *testing.T) {
	src := &fakeSource{w: Workout{ID: 1, Version: 1}}
	c := NewCatalog(src, 1<<20, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := c.Plan(context.Background(), 1); !errors.Is(err, ErrEmptyWorkout) {
		t.Errorf("err = %v, want ErrEmptyWorkout", err)
	}
}
