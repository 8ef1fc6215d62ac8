package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and credentials.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestGetSessionState verifies the bearer token is sent and the session decoded.
func TestGetSessionState(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/classes/3/session": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("Authorization=%q, want Bearer tok", got)
			}
			writeTestJSON(t, w, live.Session{ClassID: 3, Status: live.StatusLive, WorkoutType: workout.AMRAP, StepCount: 4})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL+"/", "tok", "")
	sess, err := client.GetSessionState(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil || sess.Status != live.StatusLive || sess.StepCount != 4 {
		t.Errorf("session = %+v, want live with 4 steps", sess)
	}
}

// TestGetSessionStateNull verifies a never-started class decodes to nil.
func TestGetSessionStateNull(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/classes/3/session": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("null\n"))
		},
	})
	defer ts.Close()

	sess, err := NewHTTPClient(ts.URL, "tok", "").GetSessionState(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		t.Errorf("session = %+v, want nil", sess)
	}
}

// TestLeaderboards verifies each leaderboard method hits its own path.
func TestLeaderboards(t *testing.T) {
	row := func(rank int) []live.LeaderboardRow {
		return []live.LeaderboardRow{{Rank: rank, UserID: 7, TotalReps: 42}}
	}
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/classes/5/leaderboard":           func(w http.ResponseWriter, r *http.Request) { writeTestJSON(t, w, row(1)) },
		"/api/v1/classes/5/leaderboard/intervals": func(w http.ResponseWriter, r *http.Request) { writeTestJSON(t, w, row(2)) },
		"/api/v1/classes/5/leaderboard/final":     func(w http.ResponseWriter, r *http.Request) { writeTestJSON(t, w, row(3)) },
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL, "tok", "")
	ctx := context.Background()
	tests := []struct {
		name string
		fn   func(context.Context, int64) ([]live.LeaderboardRow, error)
		rank int
	}{
		{"live", client.GetLiveLeaderboard, 1},
		{"intervals", client.GetIntervalLeaderboard, 2},
		{"final", client.GetFinalLeaderboard, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := tt.fn(ctx, 5)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 1 || rows[0].Rank != tt.rank {
				t.Errorf("rows = %+v, want rank %d", rows, tt.rank)
			}
		})
	}
}

// TestAPIKeyHeader verifies the API key is used when no token is configured.
func TestAPIKeyHeader(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts/10/steps": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-API-Key"); got != "svc" {
				t.Errorf("X-API-Key=%q, want svc", got)
			}
			if got := r.Header.Get("Authorization"); got != "" {
				t.Errorf("Authorization=%q, want empty", got)
			}
			writeTestJSON(t, w, workout.Plan{WorkoutID: 10, Steps: []workout.Step{{Index: 0, ExerciseName: "row"}}, CumReps: []int{0}})
		},
	})
	defer ts.Close()

	plan, err := NewHTTPClient(ts.URL, "", "svc").WorkoutSteps(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if plan.WorkoutID != 10 || len(plan.Steps) != 1 {
		t.Errorf("plan = %+v, want one step of workout 10", plan)
	}
}

// TestGetMyProgress verifies the progress view is decoded.
func TestGetMyProgress(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/classes/2/progress/me": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, live.ProgressView{ClassID: 2, UserID: 7, CurrentStep: 2, TotalReps: 25})
		},
	})
	defer ts.Close()

	view, err := NewHTTPClient(ts.URL, "tok", "").GetMyProgress(context.Background(), 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if view.UserID != 7 || view.TotalReps != 25 {
		t.Errorf("view = %+v, want user 7 with 25 reps", view)
	}
}

// TestErrorResponse verifies non-200 responses surface the API error detail.
func TestErrorResponse(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/classes/9/leaderboard": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not_found","detail":"class 9: not found"}`))
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "tok", "").GetLiveLeaderboard(context.Background(), 9)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "class 9: not found") {
		t.Errorf("err = %v, want status and detail", err)
	}
}
