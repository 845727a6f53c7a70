package orchestrate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// RunStatus is the lifecycle state of an agent run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Run describes one execution of an agent.
type Run struct {
	ID          string    `json:"run_id"`
	AgentID     string    `json:"agent_id,omitempty"`
	ThreadID    string    `json:"thread_id,omitempty"`
	Status      RunStatus `json:"status"`
	CreatedAt   string    `json:"created_at,omitempty"`
	CompletedAt string    `json:"completed_at,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Finished reports whether the run reached a terminal status.
func (r Run) Finished() bool {
	switch r.Status {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// GetRun returns one run.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	const op = "get_run"

	if id == "" {
		return nil, wxerrors.InvalidInput(op, "run id is required")
	}

	var run Run
	if err := c.doJSON(ctx, op, http.MethodGet, "/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the instance's runs, limited to agentID when it is not
// empty. The API answers with either a bare array or an object holding a
// "runs" array.
func (c *Client) ListRuns(ctx context.Context, agentID string) ([]Run, error) {
	const op = "list_runs"

	path := "/runs"
	if agentID != "" {
		path += "?agent_id=" + url.QueryEscape(agentID)
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, op, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Run](op, "runs", raw)
}

// CancelRun asks the service to stop a run.
func (c *Client) CancelRun(ctx context.Context, id string) error {
	const op = "cancel_run"

	if id == "" {
		return wxerrors.InvalidInput(op, "run id is required")
	}
	return c.doJSON(ctx, op, http.MethodPost, "/runs/"+url.PathEscape(id)+"/cancel", nil, nil)
}
