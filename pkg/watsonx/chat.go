package watsonx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/watsonx/pkg/models"
	"github.com/papercomputeco/watsonx/pkg/sse"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

const (
	opChat       = "chat"
	opChatStream = "chat_stream"

	pathChat       = "/ml/v1/text/chat"
	pathChatStream = "/ml/v1/text/chat_stream"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage returns a system turn.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// UserMessage returns a user turn.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant turn.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// ChatCompletionConfig controls a chat completion call.
type ChatCompletionConfig struct {
	ModelID     string        `json:"model_id"`
	MaxTokens   uint32        `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultChatCompletionConfig returns the settings used when a caller has
// no preference.
func DefaultChatCompletionConfig() ChatCompletionConfig {
	return ChatCompletionConfig{
		ModelID:     models.DefaultModel,
		MaxTokens:   models.DefaultMaxTokens,
		Temperature: 0.7,
		TopP:        1.0,
		Timeout:     models.DefaultTimeout,
	}
}

// ChatUsage reports token accounting for a chat completion.
type ChatUsage struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}

// ChatCompletionResult is the assistant reply to a conversation.
type ChatCompletionResult struct {
	Content      string     `json:"content"`
	ModelID      string     `json:"model_id"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *ChatUsage `json:"usage,omitempty"`
	RequestID    string     `json:"request_id"`
}

type chatRequest struct {
	ModelID     string        `json:"model_id"`
	ProjectID   string        `json:"project_id"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   uint32        `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	ModelID string `json:"model_id"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		Delta        ChatMessage `json:"delta"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *ChatUsage `json:"usage"`
}

// ChatCompletion sends messages and returns the complete reply.
func (c *Client) ChatCompletion(ctx context.Context, messages []ChatMessage, cfg ChatCompletionConfig) (res *ChatCompletionResult, err error) {
	const op = opChat

	start := time.Now()
	defer func() { c.observe(op, start, err) }()

	token, err := c.chatPreflight(op, messages)
	if err != nil {
		return nil, err
	}

	cfg = c.resolveChat(cfg)
	ctx, cancel := c.withTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, pathChat, token, c.chatRequest(messages, cfg))
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := c.transport.DoJSON(ctx, op, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &wxerrors.Error{Kind: wxerrors.KindAPI, Op: op, Msg: "no chat choices returned"}
	}

	model := resp.ModelID
	if model == "" {
		model = cfg.ModelID
	}
	requestID := resp.ID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	return &ChatCompletionResult{
		Content:      resp.Choices[0].Message.Content,
		ModelID:      model,
		FinishReason: resp.Choices[0].FinishReason,
		Usage:        resp.Usage,
		RequestID:    requestID,
	}, nil
}

// ChatCompletionStream streams the reply to messages, calling onFragment for
// each piece of text in order. The result carries the full reply without
// cleanup.
func (c *Client) ChatCompletionStream(ctx context.Context, messages []ChatMessage, cfg ChatCompletionConfig, onFragment func(string) error) (res *ChatCompletionResult, err error) {
	const op = opChatStream

	start := time.Now()
	defer func() { c.observe(op, start, err) }()

	token, err := c.chatPreflight(op, messages)
	if err != nil {
		return nil, err
	}

	cfg = c.resolveChat(cfg)
	ctx, cancel := c.withTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, pathChatStream, token, c.chatRequest(messages, cfg))
	if err != nil {
		return nil, err
	}

	var (
		acc  sse.Accumulator
		tail chatResponse
	)
	stats, err := c.transport.Stream(ctx, op, req, func(ev sse.Event) error {
		foldChatMeta(&tail, ev.Payload)
		if !ev.HasFragment {
			return nil
		}
		acc.Add(ev)
		if onFragment != nil {
			return onFragment(ev.Fragment)
		}
		return nil
	}, c.parseErrorHook(op), sse.WithAllPayloads())
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(acc.Text()) == "" {
		return nil, emptyResponse(op, stats)
	}

	result := &ChatCompletionResult{
		Content:   acc.Text(),
		ModelID:   cfg.ModelID,
		Usage:     tail.Usage,
		RequestID: tail.ID,
	}
	if tail.ModelID != "" {
		result.ModelID = tail.ModelID
	}
	if len(tail.Choices) > 0 {
		result.FinishReason = tail.Choices[0].FinishReason
	}
	if result.RequestID == "" {
		result.RequestID = uuid.NewString()
	}
	return result, nil
}

func (c *Client) chatPreflight(op string, messages []ChatMessage) (string, error) {
	token, err := c.accessToken(op)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", wxerrors.InvalidInput(op, "at least one message is required")
	}
	return token, nil
}

func (c *Client) resolveChat(cfg ChatCompletionConfig) ChatCompletionConfig {
	if cfg.ModelID == "" {
		cfg.ModelID = c.Model()
	}
	cfg.MaxTokens = min(cfg.MaxTokens, models.MaxTokensLimit)
	return cfg
}

func (c *Client) chatRequest(messages []ChatMessage, cfg ChatCompletionConfig) chatRequest {
	return chatRequest{
		ModelID:     cfg.ModelID,
		ProjectID:   c.cfg.ProjectID,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}
}

// foldChatMeta keeps the latest id, model, finish reason and usage seen in a
// chat stream.
func foldChatMeta(tail *chatResponse, payload json.RawMessage) {
	var chunk chatResponse
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return
	}
	if chunk.ID != "" {
		tail.ID = chunk.ID
	}
	if chunk.ModelID != "" {
		tail.ModelID = chunk.ModelID
	}
	if chunk.Usage != nil {
		tail.Usage = chunk.Usage
	}
	if len(chunk.Choices) > 0 && chunk.Choices[0].FinishReason != "" {
		tail.Choices = chunk.Choices[:1]
	}
}
