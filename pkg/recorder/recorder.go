// Package recorder provides an asynchronous worker pool that persists
// finished calls to the history store and publishes them as generation
// events.
//
// The pool keeps storage and publishing off the request path: callers
// enqueue a Job and return to the user immediately.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/papercomputeco/watsonx/pkg/eventstream"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 10 * time.Second
)

// Job is one finished call to record.
type Job struct {
	Entry     history.Entry
	RequestID string
}

// NewJob builds a Job for a call that started at started and ended with
// text or err.
func NewJob(kind history.Kind, model, prompt string, started time.Time, text string, err error) Job {
	entry := history.Entry{
		Kind:       kind,
		Model:      model,
		Prompt:     prompt,
		Text:       text,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return Job{Entry: entry}
}

// Config is the configuration options for the recorder pool.
type Config struct {
	// Store receives one history entry per job. Required.
	Store history.Store

	// Publisher is the optional event stream publisher.
	Publisher eventstream.Publisher

	// Surface names the caller in published events ("cli" or "gateway").
	Surface string

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes recording jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
	host   string

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Store == nil {
		return nil, errors.New("recorder requires a history store")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	host, _ := os.Hostname()

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger.OrNop(c.Logger).With("component", "recorder"),
		host:   host,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job for processing. It never blocks: it returns false
// and drops the job when the queue is full or the pool is closed.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, recorder closed", "kind", job.Entry.Kind)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "kind", job.Entry.Kind, "model", job.Entry.Model)
		return true
	default:
		p.logger.Warn("job not queued, queue full, job dropped",
			"kind", job.Entry.Kind,
			"model", job.Entry.Model,
		)
		return false
	}
}

// Close stops accepting jobs and waits for queued jobs to drain. It is safe
// to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob records the entry and then publishes it. A storage failure
// skips publishing; publishing failures are only logged.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultJobTimeout)
	defer cancel()

	entry := job.Entry
	if err := p.config.Store.Record(ctx, &entry); err != nil {
		p.logger.Error("recording history failed", "kind", entry.Kind, "error", err)
		return
	}

	p.logger.Debug("history recorded", "id", entry.ID, "kind", entry.Kind)

	if p.config.Publisher == nil {
		return
	}

	event := p.eventFor(entry, job.RequestID)
	if err := p.config.Publisher.PublishGeneration(ctx, event); err != nil {
		p.logger.Warn("publishing generation event failed",
			"id", entry.ID,
			"event_id", event.EventID,
			"error", err,
		)
	}
}

func (p *Pool) eventFor(entry history.Entry, requestID string) *eventstream.GenerationEvent {
	event := eventstream.NewGenerationEvent(string(entry.Kind), time.Now())
	event.Source = eventstream.EventSource{Surface: p.config.Surface, Host: p.host}
	event.Model = entry.Model
	event.RequestID = requestID
	event.ThreadID = entry.ThreadID
	event.Prompt = entry.Prompt
	event.Text = entry.Text
	event.Error = entry.Error
	event.DurationMs = entry.DurationMs
	event.Success = !entry.Failed()
	return event
}
