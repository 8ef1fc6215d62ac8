package mcp

import (
	"context"
	"encoding/json"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
)

type scoringRule struct {
	Type     workout.Type `json:"type"`
	Progress string       `json:"progress"`
	Score    string       `json:"score"`
	Ranking  string       `json:"ranking"`
}

var scoringRules = []scoringRule{
	{
		Type:     workout.ForTime,
		Progress: "advance one step at a time; reaching the last step records the finish time, stepping back clears it",
		Score:    "finish time in seconds, or total reps completed for participants who did not finish",
		Ranking:  "finishers by ascending time, then non-finishers by current step and partial reps descending",
	},
	{
		Type:     workout.AMRAP,
		Progress: "advancing past the last step completes a round and wraps to the first step",
		Score:    "rounds times reps per round, plus reps before the current step, plus partial reps",
		Ranking:  "total reps descending",
	},
	{
		Type:     workout.EMOM,
		Progress: "reps are posted per step, a finished mark per minute of the cap",
		Score:    "sum of reps across all steps",
		Ranking:  "total reps descending, ties broken by minutes marked finished",
	},
	{
		Type:     workout.Tabata,
		Progress: "reps are posted per interval",
		Score:    "sum of reps across all intervals",
		Ranking:  "total reps descending",
	},
}

func (h *handlers) scoringRules(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(scoringRules)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
