package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/auth"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWorkoutSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "workoutID")
	if !ok {
		return
	}
	plan, err := s.engine.WorkoutSteps(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// --- Session lifecycle ---

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	sess, err := s.engine.GetSessionState(r.Context(), classID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type sessionOp func(ctx context.Context, classID, coachID int64) (*live.Session, error)

func (s *Server) sessionTransition(op sessionOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, ok := pathID(w, r, "classID")
		if !ok {
			return
		}
		sess, err := op(r.Context(), classID, auth.UserID(r.Context()))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	s.sessionTransition(s.engine.StartSession)(w, r)
}

func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	s.sessionTransition(s.engine.PauseSession)(w, r)
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	s.sessionTransition(s.engine.ResumeSession)(w, r)
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	s.sessionTransition(s.engine.StopSession)(w, r)
}

func (s *Server) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.engine.SetCoachNotes(r.Context(), classID, auth.UserID(r.Context()), req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// --- Participant progress ---

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		Direction int `json:"direction"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.engine.AdvanceProgress(r.Context(), classID, auth.UserID(r.Context()), req.Direction)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePartial(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		Reps int `json:"reps"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.engine.SubmitPartial(r.Context(), classID, auth.UserID(r.Context()), req.Reps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleMyProgress(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	view, err := s.engine.GetMyProgress(r.Context(), classID, auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleIntervalScore(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		StepIndex int `json:"stepIndex"`
		Reps      int `json:"reps"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.PostIntervalScore(r.Context(), classID, auth.UserID(r.Context()), req.StepIndex, req.Reps); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleEmomMark(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		MinuteIndex   int  `json:"minuteIndex"`
		Finished      bool `json:"finished"`
		FinishSeconds *int `json:"finishSeconds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.engine.PostEmomMark(r.Context(), classID, auth.UserID(r.Context()), req.MinuteIndex, req.Finished, req.FinishSeconds)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- Leaderboards ---

type boardFunc func(ctx context.Context, classID int64) ([]live.LeaderboardRow, error)

func (s *Server) leaderboard(fn boardFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, ok := pathID(w, r, "classID")
		if !ok {
			return
		}
		rows, err := fn(r.Context(), classID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if rows == nil {
			rows = []live.LeaderboardRow{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func (s *Server) handleLiveLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.leaderboard(s.engine.GetLiveLeaderboard)(w, r)
}

func (s *Server) handleIntervalLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.leaderboard(s.engine.GetIntervalLeaderboard)(w, r)
}

func (s *Server) handleFinalLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.leaderboard(s.engine.GetFinalLeaderboard)(w, r)
}

// --- Scores and coach edits ---

func (s *Server) handleSubmitScores(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		Scores []live.ScoreInput `json:"scores"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := s.engine.SubmitScores(r.Context(), classID, auth.UserID(r.Context()), req.Scores)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"written": n})
}

func (s *Server) handleSubmitMyScore(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		Score int `json:"score"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.SubmitMyScore(r.Context(), classID, auth.UserID(r.Context()), req.Score); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCoachFinish(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		UserID  int64 `json:"userId"`
		Seconds *int  `json:"seconds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.engine.CoachSetForTimeFinish(r.Context(), classID, auth.UserID(r.Context()), req.UserID, req.Seconds)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCoachAmrapTotal(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		UserID    int64 `json:"userId"`
		TotalReps int   `json:"totalReps"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.engine.CoachSetAmrapTotal(r.Context(), classID, auth.UserID(r.Context()), req.UserID, req.TotalReps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCoachIntervalScore(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "classID")
	if !ok {
		return
	}
	var req struct {
		UserID    int64 `json:"userId"`
		StepIndex int   `json:"stepIndex"`
		Reps      int   `json:"reps"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.engine.CoachPostIntervalScore(r.Context(), classID, auth.UserID(r.Context()), req.UserID, req.StepIndex, req.Reps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// pathID parses a positive integer URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
