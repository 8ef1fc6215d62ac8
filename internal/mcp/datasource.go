package mcp

import (
	"context"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// DataSource abstracts the read side of the live class engine for MCP tools.
// Both *live.Engine (in-process) and HTTPClient (remote via REST API)
// satisfy this interface.
type DataSource interface {
	GetSessionState(ctx context.Context, classID int64) (*live.Session, error)
	GetLiveLeaderboard(ctx context.Context, classID int64) ([]live.LeaderboardRow, error)
	GetIntervalLeaderboard(ctx context.Context, classID int64) ([]live.LeaderboardRow, error)
	GetFinalLeaderboard(ctx context.Context, classID int64) ([]live.LeaderboardRow, error)
	GetMyProgress(ctx context.Context, classID, userID int64) (*live.ProgressView, error)
	WorkoutSteps(ctx context.Context, workoutID int64) (*workout.Plan, error)
}

// Compile-time check: *live.Engine satisfies DataSource.
var _ DataSource = (*live.Engine)(nil)
