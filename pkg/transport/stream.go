package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/papercomputeco/watsonx/pkg/sse"
)

// CallbackError wraps an error returned by a Stream callback so it can be
// told apart from a failure reading the stream.
type CallbackError struct {
	Err error
}

func (e *CallbackError) Error() string {
	return "stream callback: " + e.Err.Error()
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// Stream sends req with an event-stream Accept header and calls fn for each
// event the decoder yields (by default those carrying a fragment or thread
// id), until the end sentinel or the end of the body.
//
// A read failure after the response started is classified like a send
// failure. An error from fn stops the stream and is returned as a
// *CallbackError.
func (t *Transport) Stream(ctx context.Context, op string, req *http.Request, fn func(sse.Event) error, opts ...sse.Option) (sse.Stats, error) {
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.Do(ctx, op, req)
	if err != nil {
		return sse.Stats{}, err
	}
	defer resp.Body.Close()

	opts = append([]sse.Option{sse.WithLogger(t.logger.With("op", op))}, opts...)
	dec := sse.NewDecoder(resp.Body, opts...)

	err = dec.Each(func(ev sse.Event) error {
		if err := fn(ev); err != nil {
			return &CallbackError{Err: err}
		}
		return nil
	})

	var cbErr *CallbackError
	switch {
	case err == nil:
		return dec.Stats(), nil
	case errors.As(err, &cbErr):
		return dec.Stats(), cbErr
	default:
		return dec.Stats(), Classify(ctx, op, err)
	}
}
