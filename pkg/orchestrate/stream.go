package orchestrate

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/papercomputeco/watsonx/pkg/sse"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

const (
	opStreamMessage = "stream_message"
	opSendMessage   = "send_message"

	pathRunsStream = "/runs/stream"

	eventMessageCreated = "message.created"
)

// StreamMessage sends message to an agent and streams the reply, calling
// onFragment for each delta in order. Pass the previous StreamResult's
// ThreadID to continue a conversation, or "" to start one.
func (c *Client) StreamMessage(ctx context.Context, agentID, message, threadID string, onFragment func(string) error) (*StreamResult, error) {
	res, err := c.run(ctx, opStreamMessage, agentID, message, threadID, sse.ParseEnvelopeLine, onFragment)
	return res, err
}

// SendMessage sends message to an agent and waits for the whole reply. The
// text is the content of the final message.created record, or the
// concatenated deltas when the stream carried none.
func (c *Client) SendMessage(ctx context.Context, agentID, message, threadID string) (*StreamResult, error) {
	var (
		final     string
		haveFinal bool
	)

	parse := func(line string) (sse.Event, error) {
		ev, err := sse.ParseEnvelopeLine(line)
		if err != nil || ev.Kind != sse.KindPayload {
			return ev, err
		}

		var env runEnvelope
		if json.Unmarshal(ev.Payload, &env) == nil && env.Event == eventMessageCreated && len(env.Data.Message.Content) > 0 {
			final = env.Data.Message.Content[0].Text
			haveFinal = true
		}
		return ev, nil
	}

	res, err := c.run(ctx, opSendMessage, agentID, message, threadID, parse, nil)
	if err != nil {
		return nil, err
	}
	if haveFinal {
		res.Text = final
	}
	return res, nil
}

func (c *Client) run(ctx context.Context, op, agentID, message, threadID string, parse sse.LineParser, onFragment func(string) error) (res *StreamResult, err error) {
	start := time.Now()
	defer func() { c.observer.ObserveRequest(op, err, time.Since(start)) }()

	if agentID == "" {
		return nil, wxerrors.InvalidInput(op, "agent id is required")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body := runRequest{
		Message:  Message{Role: "user", Content: message},
		AgentID:  agentID,
		ThreadID: threadID,
	}
	return c.stream(ctx, op, pathRunsStream, body, threadID, parse, onFragment)
}

// stream posts body to path and drives the reply through the decoder. The
// result's thread id falls back to threadID when the stream reports none.
func (c *Client) stream(ctx context.Context, op, path string, body any, threadID string, parse sse.LineParser, onFragment func(string) error) (*StreamResult, error) {
	req, err := c.newRequest(ctx, op, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Accel-Buffering", "no")

	var acc sse.Accumulator
	stats, err := c.transport.Stream(ctx, op, req, func(ev sse.Event) error {
		acc.Add(ev)
		if ev.HasFragment && onFragment != nil {
			return onFragment(ev.Fragment)
		}
		return nil
	},
		sse.WithParser(parse),
		sse.WithParseErrorHook(func(*sse.ParseError) { c.observer.ObserveParseError(op) }),
	)
	if err != nil {
		return nil, err
	}

	res := &StreamResult{Text: acc.Text(), ThreadID: acc.ThreadID()}
	if res.ThreadID == "" {
		res.ThreadID = threadID
	}

	c.logger.Debug("agent stream finished",
		"op", op,
		"path", path,
		"thread_id", res.ThreadID,
		"fragments", stats.Fragments,
		"parse_errors", stats.ParseErrors,
	)

	return res, nil
}
