// Package transport sends requests to the watsonx and orchestrate APIs and
// turns their failures into categorized errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/papercomputeco/watsonx/pkg/logger"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// maxErrorBody caps how much of a non-2xx response body is read.
const maxErrorBody = 64 << 10

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport wraps a Doer with an optional rate limit and error
// classification.
type Transport struct {
	doer    Doer
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithDoer sets the HTTP client used to send requests.
func WithDoer(d Doer) Option {
	return func(t *Transport) {
		if d != nil {
			t.doer = d
		}
	}
}

// WithRateLimit allows at most rps requests per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(t *Transport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger requests are traced to.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger.OrNop(l)
	}
}

// New returns a Transport. Without WithDoer it uses an *http.Client with no
// overall timeout; callers bound requests through their context.
func New(opts ...Option) *Transport {
	t := &Transport{
		doer:   &http.Client{},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do sends req and returns the response if its status is 2xx. The caller
// closes the body. Any other status is read, closed and returned as an error
// from wxerrors.FromStatus.
func (t *Transport) Do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, Classify(ctx, op, ctx.Err())
			}
			return nil, wxerrors.Wrap(wxerrors.KindRateLimit, op, err)
		}
	}

	start := time.Now()
	resp, err := t.doer.Do(req.WithContext(ctx))
	if err != nil {
		t.logger.Debug("request failed", "op", op, "url", req.URL.Redacted(), "error", err)
		return nil, Classify(ctx, op, err)
	}

	t.logger.Debug("response received",
		"op", op,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, wxerrors.FromStatus(op, resp.StatusCode, string(body))
	}

	return resp, nil
}

// DoBytes sends req and returns a 2xx body.
func (t *Transport) DoBytes(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	resp, err := t.Do(ctx, op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Classify(ctx, op, err)
	}
	return body, nil
}

// DoJSON sends req and decodes a 2xx JSON body into out. A nil out discards
// the body.
func (t *Transport) DoJSON(ctx context.Context, op string, req *http.Request, out any) error {
	body, err := t.DoBytes(ctx, op, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return wxerrors.Serialization(op, err)
	}
	return nil
}

// NewJSONRequest builds a request with body encoded as JSON. A nil body
// sends no payload.
func NewJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, wxerrors.Serialization("encode_request", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, wxerrors.Wrap(wxerrors.KindConfiguration, "build_request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Classify maps a send or read failure to a categorized error. Deadlines
// become timeouts. Cancellation is returned wrapped but uncategorized so
// callers can match context.Canceled.
func Classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var werr *wxerrors.Error
	if errors.As(err, &werr) {
		return err
	}

	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}

	var nerr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return wxerrors.Timeout(op, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &nerr) && nerr.Timeout():
		return wxerrors.Timeout(op, err)
	default:
		return wxerrors.Network(op, err)
	}
}
