package gateway

import (
	"time"

	"github.com/papercomputeco/watsonx/pkg/watsonx"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// Presets accepted in GenerateRequest.Preset.
const (
	PresetQuick = "quick"
	PresetLong  = "long"
)

// GenerateRequest is the body of POST /v1/generate and
// POST /v1/generate/stream.
type GenerateRequest struct {
	Prompt string `json:"prompt"`

	// Stream re-emits fragments as server-sent events.
	Stream bool `json:"stream,omitempty"`

	// Raw skips answer cleanup.
	Raw bool `json:"raw,omitempty"`

	Preset        string   `json:"preset,omitempty"`
	Model         string   `json:"model,omitempty"`
	MaxTokens     uint32   `json:"max_tokens,omitempty"`
	TimeoutSecs   uint32   `json:"timeout_secs,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

// config layers the request's overrides on base.
func (r GenerateRequest) config(op string, base watsonx.GenerationConfig) (watsonx.GenerationConfig, error) {
	if r.Prompt == "" {
		return base, wxerrors.InvalidInput(op, "prompt is required")
	}

	cfg := base
	switch r.Preset {
	case "":
	case PresetQuick:
		cfg = watsonx.QuickResponse().WithModel(base.ModelID)
	case PresetLong:
		cfg = watsonx.LongForm().WithModel(base.ModelID)
	default:
		return base, wxerrors.InvalidInput(op, "unknown preset "+r.Preset+", expected quick or long")
	}

	if r.Model != "" {
		cfg = cfg.WithModel(r.Model)
	}
	if r.MaxTokens > 0 {
		cfg = cfg.WithMaxTokens(r.MaxTokens)
	}
	if r.TimeoutSecs > 0 {
		cfg = cfg.WithTimeout(time.Duration(r.TimeoutSecs) * time.Second)
	}
	if len(r.StopSequences) > 0 {
		cfg = cfg.WithStopSequences(r.StopSequences...)
	}
	return cfg, nil
}

// GenerateResponse is the body of a successful non-streaming generation.
type GenerateResponse struct {
	Text         string  `json:"text"`
	ModelID      string  `json:"model_id"`
	TokensUsed   uint32  `json:"tokens_used"`
	QualityScore float64 `json:"quality_score"`
	RequestID    string  `json:"request_id"`
	DurationMs   int64   `json:"duration_ms"`
}

func newGenerateResponse(res *watsonx.GenerationResult) GenerateResponse {
	return GenerateResponse{
		Text:         res.Text,
		ModelID:      res.ModelID,
		TokensUsed:   res.TokensUsed,
		QualityScore: res.QualityScore,
		RequestID:    res.RequestID,
		DurationMs:   res.Duration.Milliseconds(),
	}
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Messages    []watsonx.ChatMessage `json:"messages"`
	Stream      bool                  `json:"stream,omitempty"`
	Model       string                `json:"model,omitempty"`
	MaxTokens   uint32                `json:"max_tokens,omitempty"`
	Temperature *float64              `json:"temperature,omitempty"`
	TopP        *float64              `json:"top_p,omitempty"`
}

func (r ChatRequest) config(model string) watsonx.ChatCompletionConfig {
	cfg := watsonx.DefaultChatCompletionConfig()
	cfg.ModelID = model
	if r.Model != "" {
		cfg.ModelID = r.Model
	}
	if r.MaxTokens > 0 {
		cfg.MaxTokens = r.MaxTokens
	}
	if r.Temperature != nil {
		cfg.Temperature = *r.Temperature
	}
	if r.TopP != nil {
		cfg.TopP = *r.TopP
	}
	return cfg
}

// lastUserMessage is what history records as the prompt of a chat.
func lastUserMessage(messages []watsonx.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == watsonx.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// BatchRequest is the body of POST /v1/batch. Prompts and Requests may be
// combined; prompts come first.
type BatchRequest struct {
	Prompts  []string               `json:"prompts,omitempty"`
	Requests []watsonx.BatchRequest `json:"requests,omitempty"`
	Model    string                 `json:"model,omitempty"`
}

// BatchItem is one entry of BatchResponse.
type BatchItem struct {
	ID     string            `json:"id,omitempty"`
	Prompt string            `json:"prompt"`
	Result *GenerateResponse `json:"result,omitempty"`
	Error  *ErrorResponse    `json:"error,omitempty"`
}

// BatchResponse is the body of a finished batch.
type BatchResponse struct {
	Results     []BatchItem `json:"results"`
	Total       int         `json:"total"`
	Successful  int         `json:"successful"`
	Failed      int         `json:"failed"`
	SuccessRate float64     `json:"success_rate"`
	DurationMs  int64       `json:"duration_ms"`
}

func newBatchResponse(b *watsonx.BatchGenerationResult) BatchResponse {
	out := BatchResponse{
		Results:     make([]BatchItem, len(b.Results)),
		Total:       b.Total,
		Successful:  b.Successful,
		Failed:      b.Failed,
		SuccessRate: b.SuccessRate(),
		DurationMs:  b.Duration.Milliseconds(),
	}
	for i, item := range b.Results {
		out.Results[i] = BatchItem{ID: item.ID, Prompt: item.Prompt}
		if item.OK() {
			res := newGenerateResponse(item.Result)
			out.Results[i].Result = &res
		} else {
			e := newErrorResponse(item.Err)
			out.Results[i].Error = &e
		}
	}
	return out
}

// AgentMessageRequest is the body of POST /v1/agents/:id/messages.
type AgentMessageRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// AgentMessageResponse carries the agent's reply and the thread to
// continue with.
type AgentMessageResponse struct {
	Text     string `json:"text"`
	ThreadID string `json:"thread_id"`
}
