package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/auth"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine *live.Engine
	authn  auth.Middleware
	log    *slog.Logger
	health func(context.Context) error
	cors   []string
	router chi.Router
}

// New creates a new Server with all routes configured. corsOrigins lists
// the browser origins allowed to call the API; empty allows any.
func New(engine *live.Engine, authn auth.Middleware, corsOrigins []string, log *slog.Logger) *Server {
	s := &Server{
		engine: engine,
		authn:  authn,
		log:    log,
		cors:   corsOrigins,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS(s.cors))

	// Probes and scraping (no auth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authn.Wrap)

		r.Get("/workouts/{workoutID}/steps", s.handleWorkoutSteps)

		r.Route("/classes/{classID}", func(r chi.Router) {
			r.Get("/session", s.handleGetSession)
			r.Post("/session/start", s.handleStartSession)
			r.Post("/session/pause", s.handlePauseSession)
			r.Post("/session/resume", s.handleResumeSession)
			r.Post("/session/stop", s.handleStopSession)
			r.Put("/session/notes", s.handleSetNotes)

			r.Post("/progress/advance", s.handleAdvance)
			r.Post("/progress/partial", s.handlePartial)
			r.Get("/progress/me", s.handleMyProgress)
			r.Post("/intervals", s.handleIntervalScore)
			r.Post("/emom", s.handleEmomMark)

			r.Get("/leaderboard", s.handleLiveLeaderboard)
			r.Get("/leaderboard/intervals", s.handleIntervalLeaderboard)
			r.Get("/leaderboard/final", s.handleFinalLeaderboard)

			r.Post("/scores", s.handleSubmitScores)
			r.Post("/scores/me", s.handleSubmitMyScore)

			r.Post("/coach/finish", s.handleCoachFinish)
			r.Post("/coach/amrap-total", s.handleCoachAmrapTotal)
			r.Post("/coach/intervals", s.handleCoachIntervalScore)
		})
	})
}

// SetHealthCheck sets the dependency check behind /healthz.
func (s *Server) SetHealthCheck(fn func(context.Context) error) {
	s.health = fn
}

// SetMCP mounts an MCP transport at /mcp behind the API authentication.
func (s *Server) SetMCP(h http.Handler) {
	s.router.With(s.authn.Wrap).Handle("/mcp", h)
}
