package sse_test

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/sse"
)

const generationStream = "id: 1\n" +
	"event: message\n" +
	"data: {\"results\":[{\"generated_text\":\"Hel\"}]}\n" +
	"\n" +
	"data:{\"results\":[{\"generated_text\":\"lo 世界\"}]}\n" +
	": keep-alive\n" +
	"data: {\"results\":[{\"generated_text\":\" 🎉\"}]}\n" +
	"data: not json\n" +
	"data: {\"other\":\"data\"}\n" +
	"data: [DONE]\n" +
	"data: {\"results\":[{\"generated_text\":\"after done\"}]}\n"

// chunkedReader returns its input in the chunks given, one per Read.
type chunkedReader struct {
	chunks [][]byte
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func fragments(d *sse.Decoder) []string {
	var out []string
	err := d.Each(func(ev sse.Event) error {
		if ev.HasFragment {
			out = append(out, ev.Fragment)
		}
		return nil
	})
	Expect(err).NotTo(HaveOccurred())
	return out
}

var _ = Describe("Decoder", func() {
	expected := []string{"Hel", "lo 世界", " 🎉"}

	It("extracts fragments in order and stops at the sentinel", func() {
		d := sse.NewDecoder(strings.NewReader(generationStream))
		Expect(fragments(d)).To(Equal(expected))
		Expect(d.Stats().Fragments).To(Equal(3))
		Expect(d.Stats().ParseErrors).To(Equal(1))
	})

	It("produces the same fragments one byte at a time", func() {
		d := sse.NewDecoder(iotest.OneByteReader(strings.NewReader(generationStream)))
		Expect(fragments(d)).To(Equal(expected))
	})

	It("produces the same fragments for random chunkings", func() {
		input := []byte(generationStream)
		r := rand.New(rand.NewSource(7))
		for range 50 {
			chunks := splitAt(input, randomOffsets(r, len(input)))
			d := sse.NewDecoder(&chunkedReader{chunks: chunks}, sse.WithChunkSize(3))
			Expect(fragments(d)).To(Equal(expected))
		}
	})

	It("decodes a final line that has no trailing newline", func() {
		src := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}"
		d := sse.NewDecoder(strings.NewReader(src))
		Expect(fragments(d)).To(Equal([]string{"a", "b"}))
	})

	It("returns EOF after the sentinel", func() {
		d := sse.NewDecoder(strings.NewReader("data: [DONE]\n"))
		ev, err := d.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(sse.KindDone))

		_, err = d.Next()
		Expect(err).To(MatchError(io.EOF))
	})

	It("surfaces thread ids carried by events without text", func() {
		src := "{\"event\":\"run.started\",\"data\":{\"thread_id\":\"t-1\"}}\n" +
			"{\"event\":\"message.delta\",\"data\":{\"delta\":{\"content\":[{\"text\":\"Hi\"}]}}}\n"
		d := sse.NewDecoder(strings.NewReader(src), sse.WithParser(sse.ParseEnvelopeLine))

		ev, err := d.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.HasFragment).To(BeFalse())
		Expect(ev.ThreadID).To(Equal("t-1"))

		ev, err = d.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("Hi"))
	})

	It("yields payloads without text or thread id when asked to", func() {
		src := "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n" +
			"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}],\"usage\":{\"total_tokens\":9}}\n" +
			"data: [DONE]\n"

		var kinds []bool
		d := sse.NewDecoder(strings.NewReader(src), sse.WithAllPayloads())
		Expect(d.Each(func(ev sse.Event) error {
			Expect(ev.Kind).To(Equal(sse.KindPayload))
			kinds = append(kinds, ev.HasFragment)
			return nil
		})).To(Succeed())
		Expect(kinds).To(Equal([]bool{true, false}))
		Expect(d.Stats().Fragments).To(Equal(1))

		d = sse.NewDecoder(strings.NewReader(src))
		Expect(fragments(d)).To(Equal([]string{"hi"}))
	})

	It("counts and reports every malformed payload", func() {
		var seen []string
		src := "data: {bad\ndata: also bad\ndata: {\"results\":[{\"generated_text\":\"ok\"}]}\n"
		d := sse.NewDecoder(strings.NewReader(src), sse.WithParseErrorHook(func(perr *sse.ParseError) {
			seen = append(seen, perr.Line)
		}))

		Expect(fragments(d)).To(Equal([]string{"ok"}))
		Expect(d.Stats().ParseErrors).To(Equal(2))
		Expect(seen).To(Equal([]string{"{bad", "also bad"}))
	})

	It("distinguishes a stream of garbage from an empty stream", func() {
		d := sse.NewDecoder(strings.NewReader("data: {x\ndata: {y\n"))
		Expect(fragments(d)).To(BeEmpty())
		Expect(d.Stats().ParseErrors).To(Equal(2))

		d = sse.NewDecoder(strings.NewReader(""))
		Expect(fragments(d)).To(BeEmpty())
		Expect(d.Stats().ParseErrors).To(BeZero())
	})

	It("stops and returns the callback error", func() {
		stop := errors.New("stop")
		d := sse.NewDecoder(strings.NewReader(generationStream))
		calls := 0
		err := d.Each(func(sse.Event) error {
			calls++
			return stop
		})
		Expect(err).To(MatchError(stop))
		Expect(calls).To(Equal(1))
	})

	It("returns a read error from the source", func() {
		boom := errors.New("connection reset")
		src := io.MultiReader(strings.NewReader("data: {\"results\":[{\"generated_text\":\"a\"}]}\ndata: {\"res"), iotest.ErrReader(boom))
		d := sse.NewDecoder(src)

		ev, err := d.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("a"))

		_, err = d.Next()
		Expect(err).To(MatchError(boom))
	})

	It("tees the raw bytes", func() {
		var raw bytes.Buffer
		d := sse.NewDecoder(strings.NewReader(generationStream), sse.WithTee(&raw))
		fragments(d)
		Expect(generationStream).To(HavePrefix(raw.String()))
		Expect(raw.String()).To(ContainSubstring("data: [DONE]"))
	})
})

var _ = Describe("LineReader", func() {
	It("returns lines then EOF", func() {
		r := sse.NewLineReader(strings.NewReader("a\nb"))
		line, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("a"))

		line, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("b"))

		_, err = r.Next()
		Expect(err).To(MatchError(io.EOF))

		_, err = r.Next()
		Expect(err).To(MatchError(io.EOF))
	})
})
