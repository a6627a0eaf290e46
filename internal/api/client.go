package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running daemon over its HTTP endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given bind address. The address may be
// a bare host:port or a full http URL.
func NewClient(bind string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon runtime status.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var status DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// Progress fetches the current or last batch's progress record.
func (c *Client) Progress(ctx context.Context) (*ProgressResponse, error) {
	var resp ProgressResponse
	if err := c.do(ctx, http.MethodGet, "/api/progress", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartBatch asks the daemon to build and start a new batch.
func (c *Client) StartBatch(ctx context.Context, req BatchStartRequest) (BatchStartResponse, error) {
	var resp BatchStartResponse
	err := c.do(ctx, http.MethodPost, "/api/batch/start", req, &resp)
	return resp, err
}

// CancelBatch asks the daemon to cancel the running batch.
func (c *Client) CancelBatch(ctx context.Context) (BatchCancelResponse, error) {
	var resp BatchCancelResponse
	err := c.do(ctx, http.MethodPost, "/api/batch/cancel", nil, &resp)
	return resp, err
}

// RunCleanup triggers an immediate maintenance pass.
func (c *Client) RunCleanup(ctx context.Context) (CleanupResponse, error) {
	var resp CleanupResponse
	err := c.do(ctx, http.MethodPost, "/api/cleanup", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: unexpected status %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
