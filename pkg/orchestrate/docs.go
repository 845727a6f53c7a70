package orchestrate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/watsonx/pkg/sse"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

const (
	opChatWithDocs       = "chat_with_docs"
	opStreamChatWithDocs = "stream_chat_with_docs"
	opChatWithDocsStatus = "chat_with_docs_status"
)

// ChatWithDocsRequest asks an agent a question about inline document
// content or a document the instance already stores.
type ChatWithDocsRequest struct {
	Message         string         `json:"message"`
	DocumentContent string         `json:"document_content,omitempty"`
	DocumentPath    string         `json:"document_path,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
}

// ChatWithDocsResponse is the answer to a ChatWithDocsRequest. Message is
// empty when the service answered without any text.
type ChatWithDocsResponse struct {
	Message       string         `json:"message"`
	DocumentsUsed []string       `json:"documents_used,omitempty"`
	Confidence    float64        `json:"confidence,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ChatWithDocsStatus reports the document knowledge base of a thread.
type ChatWithDocsStatus struct {
	Status        string `json:"status"`
	DocumentCount uint32 `json:"document_count,omitempty"`
	LastUpdated   string `json:"last_updated,omitempty"`
}

// docsRunRequest is the runs/stream body carrying document context.
type docsRunRequest struct {
	Message         Message        `json:"message"`
	AgentID         string         `json:"agent_id"`
	ThreadID        string         `json:"thread_id"`
	DocumentContent string         `json:"document_content,omitempty"`
	DocumentPath    string         `json:"document_path,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
}

func threadPath(prefix, agentID, threadID string) string {
	return prefix + "/agents/" + url.PathEscape(agentID) + "/threads/" + url.PathEscape(threadID)
}

// docsPaths are the chat with documents endpoints, dedicated ones first,
// then the thread scoped runs stream.
func docsPaths(agentID, threadID string) []string {
	return []string{
		threadPath("/orchestrate", agentID, threadID) + "/chat_with_docs",
		threadPath("", agentID, threadID) + "/chat_with_docs",
		threadPath("/orchestrate", agentID, threadID) + "/runs/stream",
		threadPath("", agentID, threadID) + "/runs/stream",
	}
}

// docsBody shapes req for path: the dedicated endpoint takes it as is, the
// runs stream wants a user message.
func docsBody(path, agentID, threadID string, req ChatWithDocsRequest) any {
	if strings.HasSuffix(path, "/chat_with_docs") {
		return req
	}
	return docsRunRequest{
		Message:         Message{Role: "user", Content: req.Message},
		AgentID:         agentID,
		ThreadID:        threadID,
		DocumentContent: req.DocumentContent,
		DocumentPath:    req.DocumentPath,
		Context:         req.Context,
	}
}

func validateDocs(op, agentID, threadID string) error {
	switch {
	case agentID == "":
		return wxerrors.InvalidInput(op, "agent id is required")
	case threadID == "":
		return wxerrors.InvalidInput(op, "thread id is required")
	}
	return nil
}

// ChatWithDocs asks an agent about documents within a thread and waits for
// the whole answer.
func (c *Client) ChatWithDocs(ctx context.Context, agentID, threadID string, req ChatWithDocsRequest) (*ChatWithDocsResponse, error) {
	const op = opChatWithDocs

	if err := validateDocs(op, agentID, threadID); err != nil {
		return nil, err
	}

	var body []byte
	err := c.tryPaths(op, "chat with documents", docsPaths(agentID, threadID), func(path string) error {
		var err error
		body, err = c.doBytes(ctx, op, http.MethodPost, path, docsBody(path, agentID, threadID, req))
		return err
	})
	if err != nil {
		return nil, err
	}

	return decodeDocsAnswer(body), nil
}

// StreamChatWithDocs is ChatWithDocs streamed: onFragment is called for each
// delta in order. The result carries the concatenated text and the thread
// id.
func (c *Client) StreamChatWithDocs(ctx context.Context, agentID, threadID string, req ChatWithDocsRequest, onFragment func(string) error) (res *StreamResult, err error) {
	const op = opStreamChatWithDocs

	if err := validateDocs(op, agentID, threadID); err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	err = c.tryPaths(op, "chat with documents", docsPaths(agentID, threadID), func(path string) (err error) {
		start := time.Now()
		defer func() { c.observer.ObserveRequest(op, err, time.Since(start)) }()

		res, err = c.stream(ctx, op, path, docsBody(path, agentID, threadID, req), threadID, sse.ParseEnvelopeLine, onFragment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetChatWithDocsStatus reports the document knowledge base of a thread.
func (c *Client) GetChatWithDocsStatus(ctx context.Context, agentID, threadID string) (*ChatWithDocsStatus, error) {
	const op = opChatWithDocsStatus

	if err := validateDocs(op, agentID, threadID); err != nil {
		return nil, err
	}

	paths := []string{
		threadPath("/orchestrate", agentID, threadID) + "/chat_with_docs_status",
		threadPath("", agentID, threadID) + "/chat_with_docs_status",
		threadPath("", agentID, threadID) + "/chat_with_docs/status",
	}

	var status ChatWithDocsStatus
	err := c.tryPaths(op, "chat with documents status", paths, func(path string) error {
		return c.doJSON(ctx, op, http.MethodGet, path, nil, &status)
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// decodeDocsAnswer reads a chat with documents answer. It is a JSON object
// with the text under "message" or "content", an event stream when the
// runs endpoint answered, or plain text.
func decodeDocsAnswer(body []byte) *ChatWithDocsResponse {
	trimmed := bytes.TrimSpace(body)

	var resp ChatWithDocsResponse
	if json.Unmarshal(trimmed, &resp) == nil && resp.Message != "" {
		return &resp
	}

	var loose map[string]any
	if json.Unmarshal(trimmed, &loose) == nil {
		for _, key := range []string{"message", "content"} {
			if s, ok := loose[key].(string); ok && s != "" {
				return &ChatWithDocsResponse{Message: s}
			}
		}
		return &ChatWithDocsResponse{}
	}

	var acc sse.Accumulator
	dec := sse.NewDecoder(bytes.NewReader(trimmed), sse.WithParser(sse.ParseEnvelopeLine))
	if dec.Each(func(ev sse.Event) error {
		acc.Add(ev)
		return nil
	}) == nil && acc.Text() != "" {
		return &ChatWithDocsResponse{Message: acc.Text()}
	}

	return &ChatWithDocsResponse{Message: string(trimmed)}
}
