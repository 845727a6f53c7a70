package orchestrate

import (
	"context"
	"net/http"
	"net/url"

	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// agentPaths are tried in order; deployments differ in where they serve
// the agent list.
var agentPaths = []string{
	"/agents",
	"/orchestrate/agents",
	"/assistants",
	"/orchestrate/assistants",
}

// ListAgents returns the agents of the instance from the first listing path
// that answers successfully.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	const op = "list_agents"

	var agents []Agent
	err := c.tryPaths(op, "agent listing", agentPaths, func(path string) error {
		return c.doJSON(ctx, op, http.MethodGet, path, nil, &agents)
	})
	if err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAgent returns one agent.
func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	const op = "get_agent"

	if id == "" {
		return nil, wxerrors.InvalidInput(op, "agent id is required")
	}

	var agent Agent
	if err := c.doJSON(ctx, op, http.MethodGet, "/agents/"+url.PathEscape(id), nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}
