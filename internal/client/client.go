// Package client provides a REST client for the vidtalk server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Client talks to the vidtalk REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If baseURL is empty, uses VIDTALK_SERVER_URL env var or defaults to localhost:8000.
// Timeout can be configured via VIDTALK_CLIENT_TIMEOUT env var (default 5m; queries wait on LLM calls).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("VIDTALK_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	timeout := 5 * time.Minute
	if t := os.Getenv("VIDTALK_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// JobStatus is the server's view of one processing job.
type JobStatus struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Stage       int    `json:"stage"`
	TotalStages int    `json:"total_stages"`
	SessionID   string `json:"session_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Submit starts processing a video URL and returns the job ID.
func (c *Client) Submit(ctx context.Context, videoURL string) (string, error) {
	var resp struct {
		JobID string `json:"job_id"`
	}
	err := c.do(ctx, http.MethodPost, "/process-video-async", map[string]string{
		"youtube_url": videoURL,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// GetJob fetches the current status of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	err := c.do(ctx, http.MethodGet, "/job-status/"+jobID, nil, &status)
	return status, err
}

// ListJobs fetches all jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]JobStatus, error) {
	var resp struct {
		Jobs []JobStatus `json:"jobs"`
	}
	err := c.do(ctx, http.MethodGet, "/jobs", nil, &resp)
	return resp.Jobs, err
}

// Query asks a question against a session and returns the answer.
func (c *Client) Query(ctx context.Context, sessionID, query string) (string, error) {
	var resp struct {
		Answer string `json:"answer"`
	}
	err := c.do(ctx, http.MethodPost, "/query", map[string]string{
		"session_id": sessionID,
		"query":      query,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// StopSession ends a session and releases its resources.
func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/stop-session", map[string]string{
		"session_id": sessionID,
	}, nil)
}

// Health checks server availability.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do sends a request and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error: %s", apiErr.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
