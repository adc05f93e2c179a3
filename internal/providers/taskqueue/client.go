// Package taskqueue talks to the external durable task-delivery service. The
// service stores each task and performs at-least-once HTTP delivery with its
// own retry policy, so enqueued work survives restarts of this process.
package taskqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Task describes one scheduled HTTP delivery.
type Task struct {
	URL          string          `json:"url"`
	Method       string          `json:"method"`
	Body         json.RawMessage `json:"body,omitempty"`
	AuthToken    string          `json:"auth_token,omitempty"`
	ScheduleTime time.Time       `json:"schedule_time"`
}

// Options configures the delivery client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client submits tasks to the delivery service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ErrNotConfigured is returned when no delivery service URL was provided.
var ErrNotConfigured = errors.New("taskqueue: delivery service not configured")

// NewClient constructs a delivery client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
	}
}

// CreateTask hands the task to the delivery service. A non-2xx response is an
// error; the caller decides whether to surface or just log it.
func (c *Client) CreateTask(ctx context.Context, task Task) error {
	if c == nil || c.baseURL == "" {
		return ErrNotConfigured
	}
	if task.URL == "" {
		return errors.New("taskqueue: task url is required")
	}
	if task.Method == "" {
		task.Method = http.MethodPost
	}
	if task.ScheduleTime.IsZero() {
		task.ScheduleTime = time.Now().UTC()
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("taskqueue: marshal task: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("taskqueue: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("taskqueue: submit task: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(data) > 0 {
			return fmt.Errorf("taskqueue: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("taskqueue: status %d", resp.StatusCode)
	}
	return nil
}
