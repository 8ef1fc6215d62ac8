package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/auth"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/storage/memory"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

var testAuth = auth.Config{Secret: "handler-secret", Issuer: "gym-manager"}

const (
	testClass   int64 = 1
	testCoach   int64 = 100
	testMember  int64 = 7
	testOutside int64 = 8
)

type testEnv struct {
	srv *Server
	t   *testing.T
}

func newTestEnv(t *testing.T, typ workout.Type) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := memory.NewDirectory()
	dir.PutWorkout(workout.Workout{
		ID:      10,
		Version: 1,
		Name:    "triplet",
		Type:    typ,
		Rounds: []workout.Round{{
			Number: 1,
			Subrounds: []workout.Subround{{
				Number: 1,
				Exercises: []workout.Exercise{
					{Name: "burpees", Position: 1, Quantity: 10, Kind: workout.Reps},
					{Name: "row", Position: 2, Quantity: 20, Kind: workout.Reps},
					{Name: "air squats", Position: 3, Quantity: 15, Kind: workout.Reps},
				},
			}},
		}},
	})
	dir.PutClass(live.Class{ID: testClass, CoachID: testCoach, WorkoutID: 10, DurationMinutes: 20})
	dir.Book(testClass, testMember)

	engine := live.New(memory.NewStore(), dir, workout.NewCatalog(dir, 1<<20, log), log)
	srv := New(engine, auth.NewMiddleware(testAuth, "svc-key", nil), nil, log)
	return &testEnv{srv: srv, t: t}
}

func (e *testEnv) token(userID int64) string {
	e.t.Helper()
	tok, err := auth.Sign(testAuth, userID, nil, time.Hour)
	if err != nil {
		e.t.Fatalf("sign: %v", err)
	}
	return tok
}

// do sends a request as userID (0 sends no credentials) and returns the recorder.
func (e *testEnv) do(method, path string, userID int64, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+e.token(userID))
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestSessionBeforeStartIsNull(t *testing.T) {
	env := newTestEnv(t, workout.ForTime)

	rec := env.do(http.MethodGet, "/api/v1/classes/1/session", testMember, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != "null" {
		t.Errorf("body = %q, want null", got)
	}
}

func TestForTimeFlow(t *testing.T) {
	env := newTestEnv(t, workout.ForTime)

	rec := env.do(http.MethodPost, "/api/v1/classes/1/session/start", testCoach, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	sess := decode[live.Session](t, rec)
	if sess.Status != live.StatusLive {
		t.Errorf("status = %q, want live", sess.Status)
	}
	if sess.StepCount != 3 {
		t.Errorf("stepCount = %d, want 3", sess.StepCount)
	}

	var p live.Progress
	for i := 0; i < 3; i++ {
		rec = env.do(http.MethodPost, "/api/v1/classes/1/progress/advance", testMember, map[string]int{"direction": 1})
		if rec.Code != http.StatusOK {
			t.Fatalf("advance status = %d, want 200 (%s)", rec.Code, rec.Body.String())
		}
		p = decode[live.Progress](t, rec)
	}
	if p.CurrentStep != 3 {
		t.Errorf("currentStep = %d, want 3", p.CurrentStep)
	}
	if p.FinishSeconds == nil {
		t.Error("finishSeconds = nil, want set")
	}

	rec = env.do(http.MethodGet, "/api/v1/classes/1/progress/me", testMember, nil)
	view := decode[live.ProgressView](t, rec)
	if !view.Finished || view.TotalReps != 45 {
		t.Errorf("view = finished %v total %d, want true 45", view.Finished, view.TotalReps)
	}

	rec = env.do(http.MethodGet, "/api/v1/classes/1/leaderboard", testCoach, nil)
	rows := decode[[]live.LeaderboardRow](t, rec)
	if len(rows) != 1 || rows[0].UserID != testMember || !rows[0].Finished {
		t.Errorf("leaderboard = %+v, want one finished row for member", rows)
	}

	rec = env.do(http.MethodPost, "/api/v1/classes/1/session/stop", testCoach, nil)
	if got := decode[live.Session](t, rec).Status; got != live.StatusEnded {
		t.Errorf("status after stop = %q, want ended", got)
	}

	rec = env.do(http.MethodGet, "/api/v1/classes/1/leaderboard/final", testMember, nil)
	final := decode[[]live.LeaderboardRow](t, rec)
	if len(final) != 1 || final[0].Rank != 1 {
		t.Errorf("final = %+v, want one ranked row", final)
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, workout.ForTime)
	if rec := env.do(http.MethodPost, "/api/v1/classes/1/session/start", testCoach, nil); rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		user       int64
		body       any
		wantStatus int
		wantCode   string
	}{
		{"no credentials", http.MethodGet, "/api/v1/classes/1/session", 0, nil, http.StatusUnauthorized, ""},
		{"member cannot pause", http.MethodPost, "/api/v1/classes/1/session/pause", testMember, nil, http.StatusForbidden, "forbidden"},
		{"unbooked advance", http.MethodPost, "/api/v1/classes/1/progress/advance", testOutside, map[string]int{"direction": 1}, http.StatusForbidden, "forbidden"},
		{"bad direction", http.MethodPost, "/api/v1/classes/1/progress/advance", testMember, map[string]int{"direction": 2}, http.StatusBadRequest, "invalid_input"},
		{"bad class id", http.MethodGet, "/api/v1/classes/abc/session", testMember, nil, http.StatusBadRequest, "invalid_input"},
		{"unknown class", http.MethodGet, "/api/v1/classes/99/session", testMember, nil, http.StatusNotFound, "not_found"},
		{"interval on for time", http.MethodPost, "/api/v1/classes/1/intervals", testMember, map[string]int{"stepIndex": 0, "reps": 5}, http.StatusUnprocessableEntity, "not_interval_workout"},
		{"amrap total on for time", http.MethodPost, "/api/v1/classes/1/coach/amrap-total", testCoach, map[string]int64{"userId": testMember, "totalReps": 30}, http.StatusUnprocessableEntity, "wrong_workout_type"},
		{"unknown workout", http.MethodGet, "/api/v1/workouts/404/steps", testMember, nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.user, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if got := errorCode(t, rec); got != tt.wantCode {
					t.Errorf("error = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}
}

func TestPausedSessionRejectsProgress(t *testing.T) {
	env := newTestEnv(t, workout.AMRAP)
	env.do(http.MethodPost, "/api/v1/classes/1/session/start", testCoach, nil)
	if rec := env.do(http.MethodPost, "/api/v1/classes/1/session/pause", testCoach, nil); rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d", rec.Code)
	}

	rec := env.do(http.MethodPost, "/api/v1/classes/1/progress/partial", testMember, map[string]int{"reps": 4})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if got := errorCode(t, rec); got != "session_not_started" {
		t.Errorf("error = %q, want session_not_started", got)
	}

	env.do(http.MethodPost, "/api/v1/classes/1/session/resume", testCoach, nil)
	rec = env.do(http.MethodPost, "/api/v1/classes/1/progress/partial", testMember, map[string]int{"reps": 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("status after resume = %d, want 200", rec.Code)
	}
	if got := decode[live.Progress](t, rec).DNFPartialReps; got != 4 {
		t.Errorf("dnfPartialReps = %d, want 4", got)
	}
}

func TestCoachNotesAndScores(t *testing.T) {
	env := newTestEnv(t, workout.AMRAP)
	env.do(http.MethodPost, "/api/v1/classes/1/session/start", testCoach, nil)

	rec := env.do(http.MethodPut, "/api/v1/classes/1/session/notes", testCoach, map[string]string{"notes": "scale to 5 reps"})
	if rec.Code != http.StatusOK {
		t.Fatalf("notes status = %d (%s)", rec.Code, rec.Body.String())
	}
	if s := decode[live.Session](t, rec); s.CoachNotes == nil || *s.CoachNotes != "scale to 5 reps" {
		t.Errorf("coachNotes = %v, want set", s.CoachNotes)
	}

	rec = env.do(http.MethodPost, "/api/v1/classes/1/scores", testCoach, map[string]any{
		"scores": []live.ScoreInput{{UserID: testMember, Score: 120}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("scores status = %d (%s)", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]int](t, rec)["written"]; got != 1 {
		t.Errorf("written = %d, want 1", got)
	}
}

func TestInvalidJSON(t *testing.T) {
	env := newTestEnv(t, workout.ForTime)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/classes/1/progress/advance", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+env.token(testMember))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWorkoutSteps(t *testing.T) {
	env := newTestEnv(t, workout.ForTime)
	rec := env.do(http.MethodGet, "/api/v1/workouts/10/steps", testMember, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	plan := decode[workout.Plan](t, rec)
	if len(plan.Steps) != 3 {
		t.Errorf("steps = %d, want 3", len(plan.Steps))
	}
	if want := []int{10, 30, 45}; len(plan.CumReps) != 3 || plan.CumReps[2] != want[2] {
		t.Errorf("cumReps = %v, want %v", plan.CumReps, want)
	}
}

func TestServiceKeyReadsOnly(t *testing.T) {
	env := newTestEnv(t, workout.ForTime)
	env.do(http.MethodPost, "/api/v1/classes/1/session/start", testCoach, nil)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/classes/1/leaderboard", nil)
	get.Header.Set("X-API-Key", "svc-key")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, get)
	if rec.Code != http.StatusOK {
		t.Errorf("read status = %d, want 200", rec.Code)
	}

	post := httptest.NewRequest(http.MethodPost, "/api/v1/classes/1/session/start", nil)
	post.Header.Set("X-API-Key", "svc-key")
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, post)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("write status = %d, want 401", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, workout.ForTime)

	rec := env.do(http.MethodGet, "/healthz", 0, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	env.srv.SetHealthCheck(func(context.Context) error { return errors.New("db down") })
	rec = env.do(http.MethodGet, "/healthz", 0, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestErrorStatusFallback(t *testing.T) {
	status, code := errorStatus(errors.New("boom"))
	if status != http.StatusInternalServerError || code != "internal" {
		t.Errorf("errorStatus = %d %q, want 500 internal", status, code)
	}
	status, _ = errorStatus(live.ErrInvalidStepIndex)
	if status != http.StatusBadRequest {
		t.Errorf("step index status = %d, want 400", status)
	}
}
