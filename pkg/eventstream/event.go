// Package eventstream defines the event emitted after each completed
// generation and the publishers that ship it to a stream backend.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeGenerationCompleted is emitted once a generation, chat or
	// agent run has finished, successfully or not.
	EventTypeGenerationCompleted = "watsonx.generation.completed"
)

// GenerationEvent is a transport-neutral payload for one finished call.
type GenerationEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`

	Kind       string `json:"kind"`
	Model      string `json:"model,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	ThreadID   string `json:"thread_id,omitempty"`
	Prompt     string `json:"prompt"`
	Text       string `json:"text,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Success    bool   `json:"success"`
}

// EventSource identifies which surface produced the event.
type EventSource struct {
	// Surface is "cli" or "gateway".
	Surface string `json:"surface"`
	Host    string `json:"host,omitempty"`
}

// NewGenerationEvent returns an event with the envelope fields filled in.
func NewGenerationEvent(kind string, now time.Time) *GenerationEvent {
	return &GenerationEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeGenerationCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		Kind:          kind,
	}
}

// PartitionKey groups events that must stay ordered: turns of one agent
// thread share a key, everything else is keyed by its own id.
func (e *GenerationEvent) PartitionKey() string {
	if e.ThreadID != "" {
		return e.ThreadID
	}
	return e.EventID
}
