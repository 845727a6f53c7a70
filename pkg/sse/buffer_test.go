package sse_test

import (
	"math/rand"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/sse"
)

// drain feeds chunks into a fresh Buffer and returns every line it yields,
// including the flushed remainder.
func drain(chunks [][]byte) []string {
	var b sse.Buffer
	var lines []string
	for _, c := range chunks {
		b.Write(c)
		for {
			line, ok := b.Line()
			if !ok {
				break
			}
			lines = append(lines, line)
		}
	}
	if line, ok := b.Flush(); ok {
		lines = append(lines, line)
	}
	return lines
}

// splitAt cuts p at the given sorted offsets.
func splitAt(p []byte, offsets []int) [][]byte {
	var chunks [][]byte
	prev := 0
	for _, off := range offsets {
		chunks = append(chunks, p[prev:off])
		prev = off
	}
	return append(chunks, p[prev:])
}

func randomOffsets(r *rand.Rand, n int) []int {
	var offsets []int
	for i := 1; i < n; i++ {
		if r.Intn(4) == 0 {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

var _ = Describe("Buffer", func() {
	It("yields nothing until a newline arrives", func() {
		var b sse.Buffer
		b.Write([]byte("data: par"))
		_, ok := b.Line()
		Expect(ok).To(BeFalse())
		Expect(b.Len()).To(Equal(9))

		b.Write([]byte("tial\nrest"))
		line, ok := b.Line()
		Expect(ok).To(BeTrue())
		Expect(line).To(Equal("data: partial"))
		Expect(b.Len()).To(Equal(4))
	})

	It("yields several lines from one chunk", func() {
		Expect(drain([][]byte{[]byte("a\nb\n\nc\n")})).To(Equal([]string{"a", "b", "", "c"}))
	})

	It("flushes an unterminated final line", func() {
		Expect(drain([][]byte{[]byte("a\n"), []byte("tail")})).To(Equal([]string{"a", "tail"}))
	})

	It("reports nothing to flush when empty", func() {
		var b sse.Buffer
		_, ok := b.Flush()
		Expect(ok).To(BeFalse())
	})

	It("reassembles a multi-byte rune split across chunks", func() {
		input := []byte("data: 世界\n")
		// cut inside the three-byte encoding of 世
		chunks := splitAt(input, []int{7, 8})
		Expect(drain(chunks)).To(Equal([]string{"data: 世界"}))
	})

	It("replaces invalid UTF-8 instead of failing", func() {
		lines := drain([][]byte{{'o', 'k', 0xff, '\n'}})
		Expect(lines).To(Equal([]string{"ok�"}))
	})

	It("keeps a carriage return for the classifier to trim", func() {
		Expect(drain([][]byte{[]byte("data: x\r\n")})).To(Equal([]string{"data: x\r"}))
	})

	It("neither drops nor duplicates bytes under random chunking", func() {
		var sb strings.Builder
		for i := range 200 {
			sb.WriteString(strings.Repeat("é", i%7))
			sb.WriteString("line ")
			sb.WriteString(strings.Repeat("x", i%13))
			sb.WriteString("\n")
		}
		sb.WriteString("no trailing newline 🎉")
		input := []byte(sb.String())

		r := rand.New(rand.NewSource(42))
		for range 25 {
			lines := drain(splitAt(input, randomOffsets(r, len(input))))
			Expect(strings.Join(lines, "\n")).To(Equal(string(input)))
		}
	})

	It("handles a long line delivered one byte at a time", func() {
		long := strings.Repeat("z", 20_000)
		var b sse.Buffer
		for i := range len(long) {
			b.Write([]byte{long[i]})
			_, ok := b.Line()
			Expect(ok).To(BeFalse())
		}
		b.Write([]byte("\n"))
		line, ok := b.Line()
		Expect(ok).To(BeTrue())
		Expect(line).To(HaveLen(20_000))
	})
})
