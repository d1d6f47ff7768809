package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/virtualmirror/kinescreen/internal/domain/assessment"
	"github.com/virtualmirror/kinescreen/pkg/logger"
)

// Wire shapes of the screening API, declared locally so the simulator
// exercises the service exactly as an external client would.
type (
	sessionRequest struct {
		Name            string  `json:"name"`
		AgeYears        int     `json:"ageYears"`
		HeightCM        float64 `json:"heightCm"`
		SessionType     string  `json:"sessionType"`
		ParentSessionID string  `json:"parentSessionId,omitempty"`
	}

	sessionResponse struct {
		ID        string `json:"id"`
		DisplayID int    `json:"displayId"`
	}

	resultPayload struct {
		Task            string             `json:"task"`
		Metrics         map[string]float64 `json:"metrics"`
		DurationSeconds float64            `json:"durationSeconds"`
	}

	taskScorePayload struct {
		Task  string `json:"task"`
		Score int    `json:"score"`
	}

	summaryPayload struct {
		Tasks      []taskScorePayload `json:"tasks"`
		TotalScore int                `json:"totalScore"`
		MaxScore   int                `json:"maxScore"`
		Percentage float64            `json:"percentage"`
		RiskLevel  string             `json:"riskLevel"`
	}

	outcomeResponse struct {
		Session struct {
			RiskLevel         string  `json:"riskLevel"`
			OverallPercentage float64 `json:"overallPercentage"`
		} `json:"session"`
		Summary summaryPayload `json:"summary"`
	}

	statsResponse struct {
		TotalSessions     int `json:"totalSessions"`
		CompletedSessions int `json:"completedSessions"`
	}
)

// httpClient wraps http.Client with the service base URL.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends one JSON request and decodes the JSON response into out when the
// status matches want; any other status becomes an error carrying the body.
func (c *httpClient) do(ctx context.Context, method, path string, payload, out any, want int) error {
	var rd io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// raw performs a GET and returns the body for non-JSON responses.
func (c *httpClient) raw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != statusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	return body, nil
}

// checkServiceHealth verifies the service is reachable before exercising it.
func checkServiceHealth(ctx context.Context, c *httpClient) error {
	var health struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &health, statusOK); err != nil {
		return fmt.Errorf("service health check: %w", err)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// exerciseService replays the attempts against a running service and checks
// the served summary against the local aggregation. It walks the whole
// session lifecycle: create, record results, summarize, follow up, delete,
// report.
func exerciseService(ctx context.Context, cfg *Config, attempts []Attempt, local assessment.Summary, stats *Stats) error {
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return err
	}

	var sess sessionResponse
	create := sessionRequest{
		Name:        "Simulated Child",
		AgeYears:    cfg.AgeYears,
		HeightCM:    cfg.HeightCM,
		SessionType: "initial",
	}
	if err := client.do(ctx, http.MethodPost, "/api/sessions", create, &sess, statusCreated); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	logger.Get().Info(ctx, "session created",
		logger.String("id", sess.ID),
		logger.Int("displayId", sess.DisplayID),
	)

	for _, a := range attempts {
		payload := resultPayload{
			Task:            a.Task.String(),
			Metrics:         a.Metrics,
			DurationSeconds: a.DurationSeconds,
		}
		path := "/api/sessions/" + sess.ID + "/results"
		if err := client.do(ctx, http.MethodPost, path, payload, nil, statusCreated); err != nil {
			return fmt.Errorf("record %s result: %w", a.Task, err)
		}
		stats.ResultsPosted++
	}

	var outcome outcomeResponse
	if err := client.do(ctx, http.MethodGet, "/api/sessions/"+sess.ID+"/summary", nil, &outcome, statusOK); err != nil {
		return fmt.Errorf("fetch summary: %w", err)
	}
	if err := verifyServed(local, outcome); err != nil {
		return err
	}
	logger.Get().Info(ctx, "served summary matches the local aggregation",
		logger.String("risk", outcome.Summary.RiskLevel),
		logger.Float64("percentage", outcome.Summary.Percentage),
	)

	// A follow-up referencing the summarized session exercises the lineage
	// endpoints.
	follow := sessionRequest{
		Name:            create.Name,
		AgeYears:        cfg.AgeYears,
		HeightCM:        cfg.HeightCM,
		SessionType:     "followup",
		ParentSessionID: sess.ID,
	}
	var followSess sessionResponse
	if err := client.do(ctx, http.MethodPost, "/api/sessions", follow, &followSess, statusCreated); err != nil {
		return fmt.Errorf("create follow-up: %w", err)
	}
	var followups []sessionResponse
	if err := client.do(ctx, http.MethodGet, "/api/sessions/"+sess.ID+"/followups", nil, &followups, statusOK); err != nil {
		return fmt.Errorf("list follow-ups: %w", err)
	}
	if len(followups) == 0 || followups[len(followups)-1].ID != followSess.ID {
		return fmt.Errorf("follow-up %s missing from the parent listing", followSess.ID)
	}

	// Deleting the follow-up exercises removal and leaves only the
	// summarized session behind.
	var deleted struct {
		SessionID string `json:"sessionId"`
	}
	if err := client.do(ctx, http.MethodDelete, "/api/sessions/"+followSess.ID, nil, &deleted, statusOK); err != nil {
		return fmt.Errorf("delete follow-up: %w", err)
	}
	var remaining []sessionResponse
	if err := client.do(ctx, http.MethodGet, "/api/sessions/"+sess.ID+"/followups", nil, &remaining, statusOK); err != nil {
		return fmt.Errorf("list follow-ups after delete: %w", err)
	}
	if len(remaining) != 0 {
		return fmt.Errorf("follow-up %s still listed after deletion", deleted.SessionID)
	}
	logger.Get().Info(ctx, "follow-up session deleted", logger.String("id", deleted.SessionID))

	report, err := client.raw(ctx, "/api/sessions/"+sess.ID+"/report?format=text")
	if err != nil {
		return fmt.Errorf("fetch report: %w", err)
	}
	logger.Get().Info(ctx, "text report rendered", logger.Int("bytes", len(report)))

	var svcStats statsResponse
	if err := client.do(ctx, http.MethodGet, "/api/stats", nil, &svcStats, statusOK); err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	logger.Get().Info(ctx, "service stats",
		logger.Int("totalSessions", svcStats.TotalSessions),
		logger.Int("completedSessions", svcStats.CompletedSessions),
	)
	return nil
}
