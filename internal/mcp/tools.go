package mcp

import (
	"context"
	"errors"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/auth"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGetSessionState = mcp.NewTool("get_session_state",
	mcp.WithDescription("Get the live session of a class: status (scheduled, live, paused, ended), workout type, flattened steps, time cap and coach notes. Returns null when the class has never been started."),
	mcp.WithNumber("class_id", mcp.Required(), mcp.Description("Class ID")),
)

var toolGetLiveLeaderboard = mcp.NewTool("get_live_leaderboard",
	mcp.WithDescription("Ranked standings of a running or ended session. FOR_TIME ranks finishers by time, AMRAP by total reps; EMOM and TABATA return the interval leaderboard."),
	mcp.WithNumber("class_id", mcp.Required(), mcp.Description("Class ID")),
)

var toolGetIntervalLeaderboard = mcp.NewTool("get_interval_leaderboard",
	mcp.WithDescription("Standings of an EMOM or TABATA session by reps summed across intervals."),
	mcp.WithNumber("class_id", mcp.Required(), mcp.Description("Class ID")),
)

var toolGetFinalLeaderboard = mcp.NewTool("get_final_leaderboard",
	mcp.WithDescription("Final standings from the scores recorded when the session ended, including coach overrides."),
	mcp.WithNumber("class_id", mcp.Required(), mcp.Description("Class ID")),
)

var toolGetMyProgress = mcp.NewTool("get_my_progress",
	mcp.WithDescription("The authenticated participant's position in a class session: current step and exercise, rounds, partial reps, total reps and finish time."),
	mcp.WithNumber("class_id", mcp.Required(), mcp.Description("Class ID")),
)

var toolGetWorkoutSteps = mcp.NewTool("get_workout_steps",
	mcp.WithDescription("Flattened step list of a workout with cumulative rep counts."),
	mcp.WithNumber("workout_id", mcp.Required(), mcp.Description("Workout ID")),
)

// --- Tool handlers ---

func requireID(req mcp.CallToolRequest, key string) (int64, *mcp.CallToolResult) {
	id, err := req.RequireInt(key)
	if err != nil || id <= 0 {
		return 0, mcp.NewToolResultError(key + " must be a positive integer")
	}
	return int64(id), nil
}

// toolError turns engine errors into tool errors; only unexpected ones are logged.
func (h *handlers) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, live.ErrNotFound),
		errors.Is(err, live.ErrForbidden),
		errors.Is(err, live.ErrUnauthorized),
		errors.Is(err, live.ErrInvalidInput),
		errors.Is(err, live.ErrSessionNotStarted),
		errors.Is(err, live.ErrNotIntervalWorkout):
	default:
		h.log.Error("mcp "+tool, "error", err)
	}
	return mcp.NewToolResultError("query failed: " + err.Error())
}

func jsonResult[T any](v T) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return result
}

func (h *handlers) getSessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	classID, bad := requireID(req, "class_id")
	if bad != nil {
		return bad, nil
	}
	sess, err := h.ds.GetSessionState(ctx, classID)
	if err != nil {
		return h.toolError("get_session_state", err), nil
	}
	return jsonResult(sess), nil
}

type boardFunc func(ctx context.Context, classID int64) ([]live.LeaderboardRow, error)

func (h *handlers) leaderboard(ctx context.Context, req mcp.CallToolRequest, tool string, fn boardFunc) (*mcp.CallToolResult, error) {
	classID, bad := requireID(req, "class_id")
	if bad != nil {
		return bad, nil
	}
	rows, err := fn(ctx, classID)
	if err != nil {
		return h.toolError(tool, err), nil
	}
	if rows == nil {
		rows = []live.LeaderboardRow{}
	}
	return jsonResult(rows), nil
}

func (h *handlers) getLiveLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.leaderboard(ctx, req, "get_live_leaderboard", h.ds.GetLiveLeaderboard)
}

func (h *handlers) getIntervalLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.leaderboard(ctx, req, "get_interval_leaderboard", h.ds.GetIntervalLeaderboard)
}

func (h *handlers) getFinalLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.leaderboard(ctx, req, "get_final_leaderboard", h.ds.GetFinalLeaderboard)
}

func (h *handlers) getMyProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	classID, bad := requireID(req, "class_id")
	if bad != nil {
		return bad, nil
	}
	view, err := h.ds.GetMyProgress(ctx, classID, auth.UserID(ctx))
	if err != nil {
		return h.toolError("get_my_progress", err), nil
	}
	return jsonResult(view), nil
}

func (h *handlers) getWorkoutSteps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workoutID, bad := requireID(req, "workout_id")
	if bad != nil {
		return bad, nil
	}
	plan, err := h.ds.WorkoutSteps(ctx, workoutID)
	if err != nil {
		return h.toolError("get_workout_steps", err), nil
	}
	return jsonResult(plan), nil
}
