package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/auth"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiveClass", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Live class session server. Read session state, leaderboards, workout steps and your own progress for a class. Progress is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetSessionState, Handler: h.getSessionState},
		server.ServerTool{Tool: toolGetLiveLeaderboard, Handler: h.getLiveLeaderboard},
		server.ServerTool{Tool: toolGetIntervalLeaderboard, Handler: h.getIntervalLeaderboard},
		server.ServerTool{Tool: toolGetFinalLeaderboard, Handler: h.getFinalLeaderboard},
		server.ServerTool{Tool: toolGetMyProgress, Handler: h.getMyProgress},
		server.ServerTool{Tool: toolGetWorkoutSteps, Handler: h.getWorkoutSteps},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resScoringRules, Handler: h.scoringRules},
	)

	return s
}

// NewHTTPHandler serves s over streamable HTTP. Claims attached to the
// request by the auth middleware are carried into tool calls.
func NewHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if claims, ok := auth.FromContext(r.Context()); ok {
				return auth.WithClaims(ctx, claims)
			}
			return ctx
		}),
	)
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resScoringRules = mcp.NewResource(
	"liveclass://scoring_rules",
	"Scoring Rules",
	mcp.WithResourceDescription("How each workout type is progressed, scored and ranked on the leaderboards"),
	mcp.WithMIMEType("application/json"),
)
