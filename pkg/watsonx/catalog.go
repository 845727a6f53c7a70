package watsonx

import (
	"context"
	"net/http"
	"time"
)

const (
	opListModels = "list_models"

	pathModelSpecs = "/ml/v1/foundation_model_specs"
)

// ListModels returns the foundation models offered in the configured
// region.
func (c *Client) ListModels(ctx context.Context) (infos []ModelInfo, err error) {
	const op = opListModels

	start := time.Now()
	defer func() { c.observe(op, start, err) }()

	token, err := c.accessToken(op)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx, 0)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, pathModelSpecs, token, nil)
	if err != nil {
		return nil, err
	}

	var resp modelSpecsResponse
	if err := c.transport.DoJSON(ctx, op, req, &resp); err != nil {
		return nil, err
	}

	infos = make([]ModelInfo, 0, len(resp.Resources))
	for _, spec := range resp.Resources {
		info := ModelInfo{
			ModelID:     spec.ModelID,
			Name:        spec.Label,
			Description: spec.LongDescription,
			Provider:    spec.Provider,
		}
		if info.Description == "" {
			info.Description = spec.ShortDescription
		}
		for _, fn := range spec.Functions {
			info.SupportedTasks = append(info.SupportedTasks, fn.ID)
		}
		for _, lc := range spec.Lifecycle {
			if lc.ID == "available" {
				info.Available = true
				break
			}
		}
		infos = append(infos, info)
	}

	return infos, nil
}
