package watsonx

import (
	"time"

	"github.com/papercomputeco/watsonx/pkg/models"
)

// Sampling defaults applied when a GenerationConfig leaves them zero.
const (
	DefaultTopK              uint32  = 50
	DefaultTopP              float64 = 1.0
	DefaultRepetitionPenalty float64 = 1.1
)

// GenerationConfig controls a single text generation call.
type GenerationConfig struct {
	ModelID   string        `json:"model_id"`
	MaxTokens uint32        `json:"max_tokens"`
	Timeout   time.Duration `json:"timeout"`

	TopK              uint32   `json:"top_k,omitempty"`
	TopP              float64  `json:"top_p,omitempty"`
	RepetitionPenalty float64  `json:"repetition_penalty,omitempty"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
}

// DefaultGenerationConfig returns the settings used by Generate.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		ModelID:           models.DefaultModel,
		MaxTokens:         models.DefaultMaxTokens,
		Timeout:           models.DefaultTimeout,
		TopK:              DefaultTopK,
		TopP:              DefaultTopP,
		RepetitionPenalty: DefaultRepetitionPenalty,
	}
}

// LongForm returns a config allowing the full token budget and a five
// minute timeout.
func LongForm() GenerationConfig {
	cfg := DefaultGenerationConfig()
	cfg.MaxTokens = models.MaxTokensLimit
	cfg.Timeout = models.LongFormTimeout
	return cfg
}

// QuickResponse returns a config for short answers with a 30 second timeout.
func QuickResponse() GenerationConfig {
	cfg := DefaultGenerationConfig()
	cfg.MaxTokens = models.QuickResponseMaxTokens
	cfg.Timeout = models.QuickResponseTimeout
	return cfg
}

// WithModel returns a copy of c using model id.
func (c GenerationConfig) WithModel(id string) GenerationConfig {
	c.ModelID = id
	return c
}

// WithMaxTokens returns a copy of c with n clamped to models.MaxTokensLimit.
func (c GenerationConfig) WithMaxTokens(n uint32) GenerationConfig {
	c.MaxTokens = min(n, models.MaxTokensLimit)
	return c
}

// WithTimeout returns a copy of c with timeout d.
func (c GenerationConfig) WithTimeout(d time.Duration) GenerationConfig {
	c.Timeout = d
	return c
}

// WithStopSequences returns a copy of c that stops at any of seqs.
func (c GenerationConfig) WithStopSequences(seqs ...string) GenerationConfig {
	c.StopSequences = append([]string(nil), seqs...)
	return c
}

// GenerationResult is the outcome of a successful generation.
type GenerationResult struct {
	Text         string        `json:"text"`
	ModelID      string        `json:"model_id"`
	TokensUsed   uint32        `json:"tokens_used,omitempty"`
	QualityScore float64       `json:"quality_score"`
	RequestID    string        `json:"request_id"`
	Duration     time.Duration `json:"duration"`
}

// ModelInfo describes a foundation model offered by the service.
type ModelInfo struct {
	ModelID        string   `json:"model_id"`
	Name           string   `json:"name,omitempty"`
	Description    string   `json:"description,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	SupportedTasks []string `json:"supported_tasks,omitempty"`
	Available      bool     `json:"available"`
}

// wire types

type generationParams struct {
	DecodingMethod    string   `json:"decoding_method"`
	MaxNewTokens      uint32   `json:"max_new_tokens"`
	MinNewTokens      uint32   `json:"min_new_tokens"`
	TopK              uint32   `json:"top_k"`
	TopP              float64  `json:"top_p"`
	RepetitionPenalty float64  `json:"repetition_penalty"`
	StopSequences     []string `json:"stop_sequences"`
}

type generationRequest struct {
	Input      string           `json:"input"`
	Parameters generationParams `json:"parameters"`
	ModelID    string           `json:"model_id"`
	ProjectID  string           `json:"project_id"`
}

type generationResponse struct {
	Results []struct {
		GeneratedText       string `json:"generated_text"`
		GeneratedTokenCount uint32 `json:"generated_token_count"`
		StopReason          string `json:"stop_reason"`
	} `json:"results"`
}

type modelSpecsResponse struct {
	Resources []struct {
		ModelID          string `json:"model_id"`
		Label            string `json:"label"`
		Provider         string `json:"provider"`
		ShortDescription string `json:"short_description"`
		LongDescription  string `json:"long_description"`
		Functions        []struct {
			ID string `json:"id"`
		} `json:"functions"`
		Lifecycle []struct {
			ID string `json:"id"`
		} `json:"lifecycle"`
	} `json:"resources"`
}
