// Package wxerrors defines the error taxonomy shared by the watsonx and
// orchestrate clients.
//
// Every failure surfaced by a client is an *Error carrying a Kind. Callers
// branch on the kind with errors.Is against the Err* sentinels, reach the
// HTTP status and body with errors.As, and ask IsRetryable before retrying.
package wxerrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the category of an Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindAuthentication
	KindAPI
	KindTimeout
	KindSerialization
	KindConfiguration
	KindInvalidInput
	KindRateLimit
	KindModelNotFound
	KindProjectNotFound
	KindIO
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindNetwork:         "network",
	KindAuthentication:  "authentication",
	KindAPI:             "api",
	KindTimeout:         "timeout",
	KindSerialization:   "serialization",
	KindConfiguration:   "configuration",
	KindInvalidInput:    "invalid_input",
	KindRateLimit:       "rate_limit",
	KindModelNotFound:   "model_not_found",
	KindProjectNotFound: "project_not_found",
	KindIO:              "io",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether an operation that failed with this kind may
// succeed if repeated unchanged.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindRateLimit:
		return true
	default:
		return false
	}
}

// Error makes a bare Kind usable as a sentinel: errors.Is(err, ErrTimeout).
func (k Kind) Error() string {
	return k.String()
}

// Sentinels for errors.Is.
var (
	ErrNetwork         error = KindNetwork
	ErrAuthentication  error = KindAuthentication
	ErrAPI             error = KindAPI
	ErrTimeout         error = KindTimeout
	ErrSerialization   error = KindSerialization
	ErrConfiguration   error = KindConfiguration
	ErrInvalidInput    error = KindInvalidInput
	ErrRateLimit       error = KindRateLimit
	ErrModelNotFound   error = KindModelNotFound
	ErrProjectNotFound error = KindProjectNotFound
	ErrIO              error = KindIO
)

// maxBodyLen caps how much of an upstream error body is rendered by Error.
const maxBodyLen = 512

// Error is a categorized client failure.
type Error struct {
	Kind Kind

	// Op names the failed operation, e.g. "generate_stream" or "list_agents".
	Op string

	// Msg is a human readable description.
	Msg string

	// StatusCode and Body are set for failures derived from an HTTP response.
	StatusCode int
	Body       string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteString(" error")
	if e.Op != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Op)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		sb.WriteString(": ")
		sb.WriteString(truncate(e.Body, maxBodyLen))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a Kind sentinel against the error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Retryable reports whether the error's kind is retryable.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// IsRetryable reports whether err, or any error it wraps, is a retryable
// *Error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// New returns an *Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap returns an *Error of the given kind wrapping err. If err is already
// an *Error it is returned unchanged, so the innermost category wins.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Network wraps a transport failure.
func Network(op string, err error) error {
	return Wrap(KindNetwork, op, err)
}

// Authentication reports a missing or rejected credential.
func Authentication(op, msg string) *Error {
	return New(KindAuthentication, op, msg)
}

// API reports a non-2xx response or an unusable successful response.
func API(op string, status int, body string) *Error {
	return &Error{Kind: KindAPI, Op: op, StatusCode: status, Body: body}
}

// Timeout reports that op exceeded its deadline.
func Timeout(op string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Msg: "request timed out", Err: err}
}

// Serialization wraps a decoding failure.
func Serialization(op string, err error) error {
	return Wrap(KindSerialization, op, err)
}

// Configuration reports invalid or missing configuration.
func Configuration(op, msg string) *Error {
	return New(KindConfiguration, op, msg)
}

// InvalidInput reports a caller supplied value that cannot be sent.
func InvalidInput(op, msg string) *Error {
	return New(KindInvalidInput, op, msg)
}

// FromStatus categorizes a non-2xx HTTP response.
func FromStatus(op string, status int, body string) *Error {
	kind := KindAPI
	lower := strings.ToLower(body)

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = KindAuthentication
	case status == http.StatusTooManyRequests:
		kind = KindRateLimit
	case status == http.StatusNotFound && strings.Contains(lower, "model"):
		kind = KindModelNotFound
	case status == http.StatusNotFound && strings.Contains(lower, "project"):
		kind = KindProjectNotFound
	}

	return &Error{Kind: kind, Op: op, StatusCode: status, Body: body}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
