package sse

import (
	"errors"
	"io"
)

const defaultChunkSize = 4 * 1024

// LineReader reads complete lines from a source io.Reader, optionally writing
// every raw byte verbatim to a tee destination as it is read.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌───────────────────┐   ┌───────────────────┐
// │ LineReader.Next() │──▶│ tee io.Writer     │
// └───────────────────┘   └───────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      line        │
// └──────────────────┘
//
// Each Read from the source is treated as one chunk. Lines are handed out as
// soon as their newline arrives, never buffered ahead.
type LineReader struct {
	src   io.Reader
	tee   io.Writer
	buf   Buffer
	chunk []byte

	// err is sticky once the source has failed or been exhausted.
	err error
}

// NewLineReader returns a LineReader over src. Only the WithTee and
// WithChunkSize options apply.
func NewLineReader(src io.Reader, opts ...Option) *LineReader {
	o := newOptions(opts)

	return &LineReader{
		src:   src,
		tee:   o.tee,
		chunk: make([]byte, o.chunkSize),
	}
}

// Next returns the next line without its trailing newline. At the end of
// the source any residual bytes are returned as a final line, then io.EOF.
// A read error from the source is returned as is and ends the stream; the
// incomplete line in flight is discarded.
func (r *LineReader) Next() (string, error) {
	for {
		if line, ok := r.buf.Line(); ok {
			return line, nil
		}

		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				if line, ok := r.buf.Flush(); ok {
					return line, nil
				}
			}
			return "", r.err
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			if r.tee != nil {
				if _, werr := r.tee.Write(r.chunk[:n]); werr != nil {
					r.err = werr
					return "", werr
				}
			}
			r.buf.Write(r.chunk[:n])
		}

		if err != nil {
			r.err = err
		}
	}
}
