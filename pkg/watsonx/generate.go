package watsonx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/watsonx/pkg/sse"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

const (
	opGenerate       = "generate"
	opGenerateStream = "generate_stream"
	opGenerateText   = "generate_text"

	pathGeneration       = "/ml/v1/text/generation"
	pathGenerationStream = "/ml/v1/text/generation_stream"
)

// min_new_tokens sent for cleaned completions and for raw streams.
const (
	minTokensCleaned uint32 = 5
	minTokensRaw     uint32 = 1
)

// Generate completes prompt with the client's current model and the default
// generation settings.
func (c *Client) Generate(ctx context.Context, prompt string) (*GenerationResult, error) {
	return c.GenerateWithConfig(ctx, prompt, DefaultGenerationConfig().WithModel(c.Model()))
}

// GenerateWithConfig streams a completion and returns it cleaned by
// CleanAnswer. The whole call, including reading the stream, is bounded by
// cfg.Timeout.
func (c *Client) GenerateWithConfig(ctx context.Context, prompt string, cfg GenerationConfig) (res *GenerationResult, err error) {
	start := time.Now()
	defer func() { c.observe(opGenerate, start, err) }()

	cfg = c.resolve(cfg)
	out, err := c.streamGeneration(ctx, opGenerate, prompt, cfg, minTokensCleaned, nil)
	if err != nil {
		return nil, err
	}

	return c.newResult(CleanAnswer(out.text), out.tokens, cfg, start), nil
}

// GenerateTextStream streams a completion, calling onFragment with each
// piece of text in arrival order before the next piece is read. The result
// holds the full text without any cleanup.
//
// An error returned by onFragment stops the stream and is returned. A call
// that fails after some fragments were delivered does not retract them.
func (c *Client) GenerateTextStream(ctx context.Context, prompt string, cfg GenerationConfig, onFragment func(string) error) (res *GenerationResult, err error) {
	start := time.Now()
	defer func() { c.observe(opGenerateStream, start, err) }()

	cfg = c.resolve(cfg)
	out, err := c.streamGeneration(ctx, opGenerateStream, prompt, cfg, minTokensRaw, onFragment)
	if err != nil {
		return nil, err
	}

	return c.newResult(out.text, out.tokens, cfg, start), nil
}

// GenerateText completes prompt through the non-streaming endpoint.
func (c *Client) GenerateText(ctx context.Context, prompt string, cfg GenerationConfig) (res *GenerationResult, err error) {
	const op = opGenerateText

	start := time.Now()
	defer func() { c.observe(op, start, err) }()

	token, err := c.accessToken(op)
	if err != nil {
		return nil, err
	}

	cfg = c.resolve(cfg)
	ctx, cancel := c.withTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, pathGeneration, token, c.generationRequest(prompt, cfg, minTokensCleaned))
	if err != nil {
		return nil, err
	}

	var resp generationResponse
	if err := c.transport.DoJSON(ctx, op, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, &wxerrors.Error{Kind: wxerrors.KindAPI, Op: op, Msg: "no generation results returned"}
	}

	first := resp.Results[0]
	return c.newResult(first.GeneratedText, first.GeneratedTokenCount, cfg, start), nil
}

type streamOutput struct {
	text   string
	tokens uint32
}

// streamGeneration is the plain generation driver shared by
// GenerateWithConfig and GenerateTextStream.
func (c *Client) streamGeneration(ctx context.Context, op, prompt string, cfg GenerationConfig, minTokens uint32, onFragment func(string) error) (streamOutput, error) {
	token, err := c.accessToken(op)
	if err != nil {
		return streamOutput{}, err
	}

	ctx, cancel := c.withTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, pathGenerationStream, token, c.generationRequest(prompt, cfg, minTokens))
	if err != nil {
		return streamOutput{}, err
	}

	var (
		acc    sse.Accumulator
		tokens uint32
	)
	stats, err := c.transport.Stream(ctx, op, req, func(ev sse.Event) error {
		if !ev.HasFragment {
			return nil
		}
		acc.Add(ev)
		if n := generatedTokenCount(ev.Payload); n > 0 {
			tokens = n
		}
		if onFragment != nil {
			return onFragment(ev.Fragment)
		}
		return nil
	}, c.parseErrorHook(op))
	if err != nil {
		return streamOutput{}, err
	}

	if strings.TrimSpace(acc.Text()) == "" {
		return streamOutput{}, emptyResponse(op, stats)
	}

	c.logger.Debug("generation stream finished",
		"op", op,
		"model", cfg.ModelID,
		"lines", stats.Lines,
		"fragments", stats.Fragments,
		"parse_errors", stats.ParseErrors,
	)

	return streamOutput{text: acc.Text(), tokens: tokens}, nil
}

func (c *Client) generationRequest(prompt string, cfg GenerationConfig, minTokens uint32) generationRequest {
	params := generationParams{
		DecodingMethod:    "greedy",
		MaxNewTokens:      cfg.MaxTokens,
		MinNewTokens:      minTokens,
		TopK:              cfg.TopK,
		TopP:              cfg.TopP,
		RepetitionPenalty: cfg.RepetitionPenalty,
		StopSequences:     cfg.StopSequences,
	}
	if params.TopK == 0 {
		params.TopK = DefaultTopK
	}
	if params.TopP == 0 {
		params.TopP = DefaultTopP
	}
	if params.RepetitionPenalty == 0 {
		params.RepetitionPenalty = DefaultRepetitionPenalty
	}
	if params.StopSequences == nil {
		params.StopSequences = []string{}
	}

	return generationRequest{
		Input:      prompt,
		Parameters: params,
		ModelID:    cfg.ModelID,
		ProjectID:  c.cfg.ProjectID,
	}
}

// resolve fills the model and token budget a caller left unset.
func (c *Client) resolve(cfg GenerationConfig) GenerationConfig {
	if cfg.ModelID == "" {
		cfg.ModelID = c.Model()
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultGenerationConfig().MaxTokens
	}
	return cfg
}

func (c *Client) newResult(text string, tokens uint32, cfg GenerationConfig, start time.Time) *GenerationResult {
	return &GenerationResult{
		Text:         text,
		ModelID:      cfg.ModelID,
		TokensUsed:   tokens,
		QualityScore: AssessQuality(text),
		RequestID:    uuid.NewString(),
		Duration:     time.Since(start),
	}
}

func (c *Client) parseErrorHook(op string) sse.Option {
	return sse.WithParseErrorHook(func(*sse.ParseError) {
		c.observer.ObserveParseError(op)
	})
}

// emptyResponse is returned when a stream ends without any text. Skipped
// lines are mentioned so a stream of garbage is not mistaken for silence.
func emptyResponse(op string, stats sse.Stats) error {
	msg := "empty response from watsonx"
	if stats.ParseErrors > 0 {
		msg = fmt.Sprintf("%s (%d malformed lines skipped)", msg, stats.ParseErrors)
	}
	return &wxerrors.Error{Kind: wxerrors.KindAPI, Op: op, Msg: msg}
}

// generatedTokenCount reads the running token count carried by plain
// generation events.
func generatedTokenCount(payload json.RawMessage) uint32 {
	var doc generationResponse
	if err := json.Unmarshal(payload, &doc); err != nil || len(doc.Results) == 0 {
		return 0
	}
	return doc.Results[0].GeneratedTokenCount
}
