package sse

import (
	"errors"
	"io"
	"log/slog"
)

// LineParser turns one line into an Event. ParseLine and ParseEnvelopeLine
// are the two parsers in this package.
type LineParser func(line string) (Event, error)

// Stats counts what a Decoder has seen so far.
type Stats struct {
	Lines       int
	Fragments   int
	ParseErrors int
}

// Decoder reads a stream and yields only the events a caller acts on: those
// carrying a fragment or a thread id, and the end sentinel. WithAllPayloads
// widens this to every payload event.
type Decoder struct {
	lines        *LineReader
	parse        LineParser
	logger       *slog.Logger
	onParseError func(*ParseError)
	allPayloads  bool

	stats Stats
	done  bool
}

// NewDecoder returns a Decoder reading from src.
func NewDecoder(src io.Reader, opts ...Option) *Decoder {
	o := newOptions(opts)

	return &Decoder{
		lines: &LineReader{
			src:   src,
			tee:   o.tee,
			chunk: make([]byte, o.chunkSize),
		},
		parse:        o.parser,
		logger:       o.logger,
		onParseError: o.onParseError,
		allPayloads:  o.allPayloads,
	}
}

// Next returns the next actionable event. A KindDone event is returned once
// when the sentinel is seen; after it, and at the end of the source, Next
// returns io.EOF.
//
// Lines whose payload is not valid JSON are counted, logged and skipped.
func (d *Decoder) Next() (Event, error) {
	if d.done {
		return Event{}, io.EOF
	}

	for {
		line, err := d.lines.Next()
		if err != nil {
			return Event{}, err
		}
		d.stats.Lines++

		ev, err := d.parse(line)
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				return Event{}, err
			}
			d.recordParseError(perr)
			continue
		}

		switch {
		case ev.Kind == KindDone:
			d.done = true
			return ev, nil
		case ev.HasFragment:
			d.stats.Fragments++
			return ev, nil
		case ev.ThreadID != "":
			return ev, nil
		case d.allPayloads && ev.Kind == KindPayload:
			return ev, nil
		}
	}
}

// Each calls fn for every actionable event until the end sentinel or the
// end of the source. An error returned by fn stops decoding and is returned.
func (d *Decoder) Each(fn func(Event) error) error {
	for {
		ev, err := d.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if ev.Kind == KindDone {
			return nil
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// Stats returns the counters accumulated so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

func (d *Decoder) recordParseError(perr *ParseError) {
	d.stats.ParseErrors++
	d.logger.Warn("skipping malformed sse line",
		"error", perr.Err,
		"parse_errors", d.stats.ParseErrors,
	)
	if d.onParseError != nil {
		d.onParseError(perr)
	}
}
