package server

import (
	"errors"
	"net/http"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// errorStatus maps engine errors to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, live.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, live.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, live.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, live.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, live.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, live.ErrSessionNotStarted):
		return http.StatusUnprocessableEntity, "session_not_started"
	case errors.Is(err, live.ErrNotIntervalWorkout):
		return http.StatusUnprocessableEntity, "not_interval_workout"
	case errors.Is(err, live.ErrWrongWorkoutType):
		return http.StatusUnprocessableEntity, "wrong_workout_type"
	case errors.Is(err, workout.ErrEmptyWorkout):
		return http.StatusUnprocessableEntity, "empty_workout"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, map[string]string{"error": code})
		return
	}
	writeJSON(w, status, map[string]string{"error": code, "detail": err.Error()})
}

func badRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_input", "detail": detail})
}
