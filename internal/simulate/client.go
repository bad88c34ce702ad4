package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/telestra/telestra/internal/replay/scheduler"
)

// client wraps the service HTTP API for simulation runs.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type startResponse struct {
	SessionID string `json:"sessionId"`
	StartTime int64  `json:"startTime"`
}

// StartSession begins a recording and returns the new session id.
func (c *client) StartSession(ctx context.Context, videoID string) (string, error) {
	var resp startResponse
	err := c.do(ctx, http.MethodPost, "/sessions", map[string]any{"videoId": videoID}, &resp)
	if err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// SubmitEvent records one interaction on the active session.
func (c *client) SubmitEvent(ctx context.Context, sessionID string, e event) error {
	return c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/events", e, nil)
}

// StopSession finalizes the recording.
func (c *client) StopSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/stop", nil, nil)
}

// SetCategory applies a rating to a session.
func (c *client) SetCategory(ctx context.Context, sessionID, categoryID string, rating int) error {
	path := "/sessions/" + sessionID + "/categories/" + categoryID
	return c.do(ctx, http.MethodPut, path, map[string]int{"rating": rating}, nil)
}

// StartReplay begins playback of a persisted session.
func (c *client) StartReplay(ctx context.Context, sessionID string) (scheduler.Status, error) {
	var status scheduler.Status
	err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/replay", nil, &status)
	return status, err
}

// ReplayStatus fetches the replay progress for a session.
func (c *client) ReplayStatus(ctx context.Context, sessionID string) (scheduler.Status, error) {
	var status scheduler.Status
	err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/replay", nil, &status)
	return status, err
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
