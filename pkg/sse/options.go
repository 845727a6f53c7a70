package sse

import (
	"io"
	"log/slog"
)

// Option configures a LineReader or Decoder.
type Option func(*options)

type options struct {
	tee          io.Writer
	chunkSize    int
	parser       LineParser
	logger       *slog.Logger
	onParseError func(*ParseError)
	allPayloads  bool
}

func newOptions(opts []Option) *options {
	o := &options{
		chunkSize: defaultChunkSize,
		parser:    ParseLine,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// WithTee copies every raw byte read from the source to w.
func WithTee(w io.Writer) Option {
	return func(o *options) {
		o.tee = w
	}
}

// WithChunkSize sets the size of each read from the source.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithParser sets the line parser used by a Decoder. Defaults to ParseLine.
func WithParser(p LineParser) Option {
	return func(o *options) {
		if p != nil {
			o.parser = p
		}
	}
}

// WithLogger sets the logger a Decoder reports skipped lines to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithParseErrorHook registers fn to be called for every payload that fails
// to parse, after it has been counted and logged.
func WithParseErrorHook(fn func(*ParseError)) Option {
	return func(o *options) {
		o.onParseError = fn
	}
}

// WithAllPayloads makes a Decoder yield every payload event, including those
// carrying neither a fragment nor a thread id. Drivers that fold stream
// metadata such as finish reasons or usage need them.
func WithAllPayloads() Option {
	return func(o *options) {
		o.allPayloads = true
	}
}
