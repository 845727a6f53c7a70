// Package sse decodes the Server-Sent Events streams returned by the watsonx
// text generation, chat and orchestrate run endpoints.
//
// Decoding happens in three layers:
//
//	┌──────────────────┐
//	│ source io.Reader │  arbitrary chunks
//	└──────────────────┘
//	         │
//	         ▼
//	┌──────────────────┐
//	│ LineReader       │  complete lines, lossy UTF-8
//	└──────────────────┘
//	         │
//	         ▼
//	┌──────────────────┐
//	│ ParseLine        │  Event: fragment and/or thread id
//	└──────────────────┘
//
// Decoder ties the layers together for callers that only care about the
// events that carry text.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
package sse

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a single decoded line.
type Kind int

const (
	// KindIgnored is an empty line, a comment, an "id:" or "event:" line,
	// an empty "data:" payload, or any other non-data line.
	KindIgnored Kind = iota

	// KindDone is the literal "[DONE]" end sentinel.
	KindDone

	// KindPayload is a data line whose payload parsed as JSON.
	KindPayload
)

func (k Kind) String() string {
	switch k {
	case KindIgnored:
		return "ignored"
	case KindDone:
		return "done"
	case KindPayload:
		return "payload"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is the parsed form of one line of an event stream.
type Event struct {
	Kind Kind

	// Fragment is the generated text carried by the payload. It is only
	// meaningful when HasFragment is true: an empty string is a valid
	// fragment for some providers.
	Fragment    string
	HasFragment bool

	// ThreadID is set when the payload carried a thread_id, either at the
	// top level or inside the orchestrate "data" envelope.
	ThreadID string

	// Payload holds the raw JSON for KindPayload events.
	Payload json.RawMessage
}

// ParseError reports a data line whose payload was not valid JSON.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	line := e.Line
	if len(line) > 120 {
		line = line[:120] + "..."
	}
	return fmt.Sprintf("parsing sse payload %q: %v", line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
