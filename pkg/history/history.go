// Package history persists a record of every generation, chat and agent run
// made through the CLI or the gateway.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind says which API produced an entry.
type Kind string

const (
	KindGenerate Kind = "generate"
	KindStream   Kind = "stream"
	KindChat     Kind = "chat"
	KindBatch    Kind = "batch"
	KindAgent    Kind = "agent"
)

// Entry is one recorded call.
type Entry struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Model      string    `json:"model,omitempty"`
	Prompt     string    `json:"prompt"`
	Text       string    `json:"text,omitempty"`
	Error      string    `json:"error,omitempty"`
	ThreadID   string    `json:"thread_id,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Failed reports whether the call ended in an error.
func (e *Entry) Failed() bool {
	return e.Error != ""
}

// Store persists entries.
type Store interface {
	// Record saves e, assigning an ID and CreatedAt when they are unset.
	Record(ctx context.Context, e *Entry) error

	// List returns up to limit entries, newest first. A limit of zero or
	// less returns every entry.
	List(ctx context.Context, limit int) ([]*Entry, error)

	// Get returns the entry with the given id or a NotFoundError.
	Get(ctx context.Context, id string) (*Entry, error)

	// Close releases the store's resources.
	Close() error
}

// NotFoundError is returned by Get for an unknown id.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "history entry not found"
	}
	return "history entry not found: " + e.ID
}

// prepare fills the generated fields of e.
func prepare(e *Entry, now func() time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now().UTC()
	}
}
