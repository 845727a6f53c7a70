package sse

import (
	"bytes"
)

var replacementChar = []byte("�")

// Buffer reassembles complete lines from arbitrarily sized chunks.
//
// Bytes are held in one owned slice with a read offset. Consumed bytes are
// compacted away lazily on Write, once they make up at least half of the
// slice, and newline scanning resumes where the previous scan stopped, so a
// long line delivered one byte at a time is scanned once.
//
// The zero value is ready to use. A Buffer is not safe for concurrent use.
type Buffer struct {
	buf  []byte
	off  int
	scan int
}

// Write appends a chunk to the buffer.
func (b *Buffer) Write(p []byte) {
	b.compact()
	b.buf = append(b.buf, p...)
}

// Line removes and returns the next complete line, without its trailing
// newline. It reports false when no newline is buffered yet.
func (b *Buffer) Line() (string, bool) {
	i := bytes.IndexByte(b.buf[b.scan:], '\n')
	if i < 0 {
		b.scan = len(b.buf)
		return "", false
	}

	end := b.scan + i
	line := decodeLine(b.buf[b.off:end])
	b.off = end + 1
	b.scan = b.off

	return line, true
}

// Flush removes and returns whatever remains in the buffer as a final,
// unterminated line. It reports false when the buffer is empty.
func (b *Buffer) Flush() (string, bool) {
	if b.off >= len(b.buf) {
		b.reset()
		return "", false
	}

	line := decodeLine(b.buf[b.off:])
	b.reset()

	return line, true
}

// Len returns the number of buffered bytes not yet returned as a line.
func (b *Buffer) Len() int {
	return len(b.buf) - b.off
}

func (b *Buffer) compact() {
	if b.off == 0 || b.off < len(b.buf)/2 {
		return
	}

	n := copy(b.buf, b.buf[b.off:])
	b.buf = b.buf[:n]
	b.scan -= b.off
	b.off = 0
}

func (b *Buffer) reset() {
	b.buf = b.buf[:0]
	b.off = 0
	b.scan = 0
}

// decodeLine converts one complete line to a string, replacing invalid UTF-8
// with U+FFFD. Decoding only ever sees whole lines, so a rune split across
// two chunks is reassembled before it is checked.
func decodeLine(p []byte) string {
	return string(bytes.ToValidUTF8(p, replacementChar))
}
