package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/workout"
)

// HTTPClient implements DataSource by calling the live class REST API.
// Used for stdio MCP mode where the binary runs next to the agent and the
// engine runs on the remote server. The caller's identity comes from the
// bearer token, so user ids passed to its methods are ignored.
type HTTPClient struct {
	baseURL    string
	token      string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. token is
// sent as a bearer token; apiKey, when token is empty, as X-API-Key.
func NewHTTPClient(baseURL, token, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.apiKey != "":
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, apiError(body))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

// apiError extracts the detail of an error body, falling back to the raw body.
func apiError(body []byte) string {
	var e struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) != nil || e.Error == "" {
		return strings.TrimSpace(string(body))
	}
	if e.Detail != "" {
		return e.Error + ": " + e.Detail
	}
	return e.Error
}

func classPath(classID int64, suffix string) string {
	return fmt.Sprintf("/api/v1/classes/%d/%s", classID, suffix)
}

func (c *HTTPClient) GetSessionState(ctx context.Context, classID int64) (*live.Session, error) {
	var sess *live.Session
	if err := c.get(ctx, classPath(classID, "session"), &sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (c *HTTPClient) GetLiveLeaderboard(ctx context.Context, classID int64) ([]live.LeaderboardRow, error) {
	var rows []live.LeaderboardRow
	if err := c.get(ctx, classPath(classID, "leaderboard"), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) GetIntervalLeaderboard(ctx context.Context, classID int64) ([]live.LeaderboardRow, error) {
	var rows []live.LeaderboardRow
	if err := c.get(ctx, classPath(classID, "leaderboard/intervals"), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) GetFinalLeaderboard(ctx context.Context, classID int64) ([]live.LeaderboardRow, error) {
	var rows []live.LeaderboardRow
	if err := c.get(ctx, classPath(classID, "leaderboard/final"), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) GetMyProgress(ctx context.Context, classID, _ int64) (*live.ProgressView, error) {
	var view live.ProgressView
	if err := c.get(ctx, classPath(classID, "progress/me"), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) WorkoutSteps(ctx context.Context, workoutID int64) (*workout.Plan, error) {
	var plan workout.Plan
	if err := c.get(ctx, fmt.Sprintf("/api/v1/workouts/%d/steps", workoutID), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
