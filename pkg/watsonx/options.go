package watsonx

import (
	"log/slog"
	"net/http"

	"github.com/papercomputeco/watsonx/pkg/auth"
	"github.com/papercomputeco/watsonx/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client shared by every request, including
// concurrent batch items.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger.OrNop(l)
	}
}

// WithTokenSource replaces the default IAM token source used by Connect.
func WithTokenSource(ts auth.TokenSource) Option {
	return func(cl *Client) {
		cl.tokens = ts
	}
}

// WithRateLimit caps outgoing requests at rps per second with the given
// burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(cl *Client) {
		cl.rps = rps
		cl.burst = burst
	}
}

// WithObserver registers o to be told about every request and every
// malformed stream line.
func WithObserver(o Observer) Option {
	return func(cl *Client) {
		if o != nil {
			cl.observer = o
		}
	}
}

// WithBatchConcurrency bounds how many batch items run at once. Zero runs
// every item in its own goroutine.
func WithBatchConcurrency(n int) Option {
	return func(cl *Client) {
		if n >= 0 {
			cl.batchConcurrency = n
		}
	}
}
