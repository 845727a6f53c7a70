package watsonx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/papercomputeco/watsonx/pkg/transport"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

const opBatch = "batch"

// BatchRequest is one prompt in a batch. A nil Config uses the batch
// default.
type BatchRequest struct {
	ID     string            `json:"id,omitempty"`
	Prompt string            `json:"prompt"`
	Config *GenerationConfig `json:"config,omitempty"`
}

// NewBatchRequest returns a request for prompt with the batch defaults.
func NewBatchRequest(prompt string) BatchRequest {
	return BatchRequest{Prompt: prompt}
}

// WithID returns a copy of r carrying a caller correlation id.
func (r BatchRequest) WithID(id string) BatchRequest {
	r.ID = id
	return r
}

// WithConfig returns a copy of r that overrides the batch default.
func (r BatchRequest) WithConfig(cfg GenerationConfig) BatchRequest {
	r.Config = &cfg
	return r
}

// BatchItemResult is the outcome of one batch request. Exactly one of
// Result and Err is set; ID and Prompt are always copied from the request.
type BatchItemResult struct {
	ID     string            `json:"id,omitempty"`
	Prompt string            `json:"prompt"`
	Result *GenerationResult `json:"result,omitempty"`
	Err    error             `json:"-"`
}

// OK reports whether the item succeeded.
func (r BatchItemResult) OK() bool {
	return r.Err == nil
}

// BatchGenerationResult aggregates a batch. Results are in request order and
// the counters are fixed when the batch completes.
type BatchGenerationResult struct {
	Results    []BatchItemResult `json:"results"`
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Duration   time.Duration     `json:"duration"`
}

func newBatchGenerationResult(results []BatchItemResult, d time.Duration) *BatchGenerationResult {
	out := &BatchGenerationResult{
		Results:  results,
		Total:    len(results),
		Duration: d,
	}
	for _, r := range results {
		if r.OK() {
			out.Successful++
		} else {
			out.Failed++
		}
	}
	return out
}

// Successes returns the items that produced a result.
func (b *BatchGenerationResult) Successes() []BatchItemResult {
	return b.filter(true)
}

// Failures returns the items that failed.
func (b *BatchGenerationResult) Failures() []BatchItemResult {
	return b.filter(false)
}

// AnyFailed reports whether at least one item failed.
func (b *BatchGenerationResult) AnyFailed() bool {
	return b.Failed > 0
}

// SuccessRate is Successful/Total, or 0 for an empty batch.
func (b *BatchGenerationResult) SuccessRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Successful) / float64(b.Total)
}

func (b *BatchGenerationResult) filter(ok bool) []BatchItemResult {
	var out []BatchItemResult
	for _, r := range b.Results {
		if r.OK() == ok {
			out = append(out, r)
		}
	}
	return out
}

// GenerateBatch runs every request concurrently and waits for all of them.
//
// The only error it returns is a missing token, checked before anything is
// dispatched. Per item failures, including panics, are reported in that
// item's BatchItemResult and never affect other items.
func (c *Client) GenerateBatch(ctx context.Context, reqs []BatchRequest, defaultCfg GenerationConfig) (*BatchGenerationResult, error) {
	if _, err := c.accessToken(opBatch); err != nil {
		return nil, err
	}

	start := time.Now()
	results := make([]BatchItemResult, len(reqs))

	var sem *semaphore.Weighted
	if c.batchConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(c.batchConcurrency))
	}

	var wg sync.WaitGroup
	for i, req := range reqs {
		cfg := defaultCfg
		if req.Config != nil {
			cfg = *req.Config
		}

		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = BatchItemResult{
					ID:     req.ID,
					Prompt: req.Prompt,
					Err:    transport.Classify(ctx, opBatch, err),
				}
				c.observer.ObserveBatchItem(results[i].Err)
				continue
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				defer sem.Release(1)
			}
			results[i] = c.runBatchItem(ctx, req, cfg)
		}()
	}
	wg.Wait()

	batch := newBatchGenerationResult(results, time.Since(start))

	c.logger.Info("batch finished",
		"total", batch.Total,
		"successful", batch.Successful,
		"failed", batch.Failed,
		"duration", batch.Duration,
	)
	c.observer.ObserveRequest(opBatch, nil, batch.Duration)

	return batch, nil
}

// GenerateBatchSimple runs prompts with the client's model and default
// settings.
func (c *Client) GenerateBatchSimple(ctx context.Context, prompts []string) (*BatchGenerationResult, error) {
	reqs := make([]BatchRequest, len(prompts))
	for i, p := range prompts {
		reqs[i] = NewBatchRequest(p)
	}
	return c.GenerateBatch(ctx, reqs, DefaultGenerationConfig().WithModel(c.Model()))
}

func (c *Client) runBatchItem(ctx context.Context, req BatchRequest, cfg GenerationConfig) (item BatchItemResult) {
	item = BatchItemResult{ID: req.ID, Prompt: req.Prompt}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("batch item panicked", "id", req.ID, "panic", r)
			item.Result = nil
			item.Err = wxerrors.Network(opBatch, fmt.Errorf("batch item did not complete: %v", r))
		}
		c.observer.ObserveBatchItem(item.Err)
	}()

	res, err := c.generate(ctx, req.Prompt, cfg)
	switch {
	case err != nil:
		item.Err = err
	case res == nil:
		item.Err = &wxerrors.Error{Kind: wxerrors.KindAPI, Op: opBatch, Msg: "generator returned no result"}
	default:
		item.Result = res
	}
	return item
}
