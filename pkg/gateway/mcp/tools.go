package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/watsonx/pkg/watsonx"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

var (
	generateToolName    = "generate"
	generateDescription = "Generate text with an IBM watsonx.ai foundation model. Returns the cleaned answer, the model used and a heuristic quality score."

	batchToolName    = "batch_generate"
	batchDescription = "Generate answers for several prompts concurrently. Each prompt succeeds or fails independently; results keep the input order."

	listModelsToolName    = "list_models"
	listModelsDescription = "List the foundation models available in the configured watsonx.ai region."
)

// GenerateInput represents the input arguments for the generate tool.
type GenerateInput struct {
	Prompt    string `json:"prompt" jsonschema:"the prompt to send to the model"`
	Model     string `json:"model,omitempty" jsonschema:"model id, defaults to the gateway's configured model"`
	MaxTokens uint32 `json:"max_tokens,omitempty" jsonschema:"maximum number of tokens to generate"`
}

// GenerateOutput represents the output of the generate tool.
type GenerateOutput struct {
	Text         string  `json:"text"`
	ModelID      string  `json:"model_id"`
	TokensUsed   uint32  `json:"tokens_used"`
	QualityScore float64 `json:"quality_score"`
}

// BatchInput represents the input arguments for the batch_generate tool.
type BatchInput struct {
	Prompts []string `json:"prompts" jsonschema:"the prompts to generate answers for"`
	Model   string   `json:"model,omitempty" jsonschema:"model id used for every prompt"`
}

// BatchItem is one prompt's outcome.
type BatchItem struct {
	Index int    `json:"index"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// BatchOutput represents the output of the batch_generate tool.
type BatchOutput struct {
	Results    []BatchItem `json:"results"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
}

// ListModelsInput takes no arguments.
type ListModelsInput struct{}

// ListModelsOutput represents the output of the list_models tool.
type ListModelsOutput struct {
	Models []watsonx.ModelInfo `json:"models"`
	Count  int                 `json:"count"`
}

func (s *Server) generationConfig(model string, maxTokens uint32) watsonx.GenerationConfig {
	cfg := s.config.Defaults()
	if model != "" {
		cfg = cfg.WithModel(model)
	}
	if maxTokens > 0 {
		cfg = cfg.WithMaxTokens(maxTokens)
	}
	return cfg
}

func (s *Server) handleGenerate(ctx context.Context, _ *mcp.CallToolRequest, input GenerateInput) (*mcp.CallToolResult, GenerateOutput, error) {
	logger := s.config.Logger

	if input.Prompt == "" {
		return toolError("prompt is required"), GenerateOutput{}, nil
	}

	logger.Debug("MCP generate request", "model", input.Model, "prompt_len", len(input.Prompt))

	res, err := s.config.Generator.GenerateWithConfig(ctx, input.Prompt, s.generationConfig(input.Model, input.MaxTokens))
	if err != nil {
		logger.Error("generate tool failed", "kind", wxerrors.KindOf(err).String(), "error", err)
		return toolError("Generation failed: %v", err), GenerateOutput{}, nil
	}

	out := GenerateOutput{
		Text:         res.Text,
		ModelID:      res.ModelID,
		TokensUsed:   res.TokensUsed,
		QualityScore: res.QualityScore,
	}

	result, err := jsonResult(out)
	if err != nil {
		return toolError("Failed to serialize result: %v", err), GenerateOutput{}, nil
	}
	return result, out, nil
}

func (s *Server) handleBatchGenerate(ctx context.Context, _ *mcp.CallToolRequest, input BatchInput) (*mcp.CallToolResult, BatchOutput, error) {
	logger := s.config.Logger

	if len(input.Prompts) == 0 {
		return toolError("at least one prompt is required"), BatchOutput{}, nil
	}

	reqs := make([]watsonx.BatchRequest, len(input.Prompts))
	for i, p := range input.Prompts {
		reqs[i] = watsonx.NewBatchRequest(p)
	}

	batch, err := s.config.Generator.GenerateBatch(ctx, reqs, s.generationConfig(input.Model, 0))
	if err != nil {
		logger.Error("batch tool failed", "error", err)
		return toolError("Batch failed: %v", err), BatchOutput{}, nil
	}

	out := BatchOutput{
		Results:    make([]BatchItem, len(batch.Results)),
		Successful: batch.Successful,
		Failed:     batch.Failed,
	}
	for i, item := range batch.Results {
		out.Results[i] = BatchItem{Index: i}
		if item.OK() {
			out.Results[i].Text = item.Result.Text
		} else {
			out.Results[i].Error = item.Err.Error()
		}
	}

	result, err := jsonResult(out)
	if err != nil {
		return toolError("Failed to serialize result: %v", err), BatchOutput{}, nil
	}
	return result, out, nil
}

func (s *Server) handleListModels(ctx context.Context, _ *mcp.CallToolRequest, _ ListModelsInput) (*mcp.CallToolResult, ListModelsOutput, error) {
	infos, err := s.config.Generator.ListModels(ctx)
	if err != nil {
		s.config.Logger.Error("list_models tool failed", "error", err)
		return toolError("Listing models failed: %v", err), ListModelsOutput{}, nil
	}

	out := ListModelsOutput{Models: infos, Count: len(infos)}
	result, err := jsonResult(out)
	if err != nil {
		return toolError("Failed to serialize result: %v", err), ListModelsOutput{}, nil
	}
	return result, out, nil
}
