package orchestrate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// ListThreads returns the instance's threads, limited to agentID when it is
// not empty.
func (c *Client) ListThreads(ctx context.Context, agentID string) ([]Thread, error) {
	path := "/threads"
	if agentID != "" {
		path += "?agent_id=" + url.QueryEscape(agentID)
	}

	var threads []Thread
	if err := c.doJSON(ctx, "list_threads", http.MethodGet, path, nil, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// CreateThread starts an empty thread, bound to agentID when it is not
// empty.
func (c *Client) CreateThread(ctx context.Context, agentID string) (*Thread, error) {
	var thread Thread
	if err := c.doJSON(ctx, "create_thread", http.MethodPost, "/threads", createThreadRequest{AgentID: agentID}, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// DeleteThread removes a thread.
func (c *Client) DeleteThread(ctx context.Context, id string) error {
	const op = "delete_thread"

	if id == "" {
		return wxerrors.InvalidInput(op, "thread id is required")
	}
	return c.doJSON(ctx, op, http.MethodDelete, "/threads/"+url.PathEscape(id), nil, nil)
}

// GetThreadMessages returns the messages of a thread. The API answers with
// either a bare array or an object holding a "messages" array.
func (c *Client) GetThreadMessages(ctx context.Context, id string) ([]Message, error) {
	const op = "get_thread_messages"

	if id == "" {
		return nil, wxerrors.InvalidInput(op, "thread id is required")
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, op, http.MethodGet, "/threads/"+url.PathEscape(id)+"/messages", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Message](op, "messages", raw)
}
