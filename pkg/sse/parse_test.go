package sse_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/sse"
)

var _ = Describe("ParseLine", func() {
	DescribeTable("lines that never carry a fragment",
		func(line string, kind sse.Kind) {
			ev, err := sse.ParseLine(line)
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Kind).To(Equal(kind))
			Expect(ev.HasFragment).To(BeFalse())
		},
		Entry("empty line", "", sse.KindIgnored),
		Entry("whitespace only", "   \t", sse.KindIgnored),
		Entry("id line", "id: 42", sse.KindIgnored),
		Entry("event line", "event: message", sse.KindIgnored),
		Entry("comment", ": keep-alive", sse.KindIgnored),
		Entry("unknown field", "retry: 1000", sse.KindIgnored),
		Entry("empty data", "data:", sse.KindIgnored),
		Entry("empty data with space", "data: ", sse.KindIgnored),
		Entry("done sentinel", "data: [DONE]", sse.KindDone),
		Entry("done sentinel without space", "data:[DONE]", sse.KindDone),
		Entry("done sentinel with extra space", "data:  [DONE]", sse.KindDone),
		Entry("unrecognized shape", `data: {"other":"data"}`, sse.KindPayload),
		Entry("json that is not an object", "data: 42", sse.KindPayload),
	)

	DescribeTable("payload shapes",
		func(line, fragment string) {
			ev, err := sse.ParseLine(line)
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Kind).To(Equal(sse.KindPayload))
			Expect(ev.HasFragment).To(BeTrue())
			Expect(ev.Fragment).To(Equal(fragment))
		},
		Entry("plain generation",
			`data: {"results":[{"generated_text":"Paris","generated_token_count":1}]}`, "Paris"),
		Entry("chat delta",
			`data: {"choices":[{"index":0,"delta":{"content":"Hel"}}]}`, "Hel"),
		Entry("chat message",
			`data: {"choices":[{"message":{"role":"assistant","content":"Hello"}}]}`, "Hello"),
		Entry("agent delta",
			`data: {"event":"message.delta","data":{"delta":{"content":[{"text":"Hi"}]}}}`, "Hi"),
		Entry("agent content",
			`data: {"data":{"content":[{"text":"Done"}]}}`, "Done"),
		Entry("no space after prefix",
			`data:{"results":[{"generated_text":"x"}]}`, "x"),
		Entry("empty fragment string",
			`data: {"choices":[{"delta":{"content":""}}]}`, ""),
	)

	It("strips exactly one space after the data prefix", func() {
		ev, err := sse.ParseLine(`data: {"results":[{"generated_text":"  indented"}]}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("  indented"))
	})

	It("trims surrounding whitespace and carriage returns", func() {
		ev, err := sse.ParseLine("  data: {\"results\":[{\"generated_text\":\"ok\"}]}\r")
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("ok"))
	})

	It("prefers the plain generation shape when several match", func() {
		ev, err := sse.ParseLine(`data: {"results":[{"generated_text":"plain"}],"choices":[{"delta":{"content":"chat"}}]}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("plain"))
	})

	It("prefers the chat delta over the chat message", func() {
		ev, err := sse.ParseLine(`data: {"choices":[{"delta":{"content":"d"},"message":{"content":"m"}}]}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("d"))
	})

	It("falls through when a matching field is not a string", func() {
		ev, err := sse.ParseLine(`data: {"choices":[{"delta":{"content":null},"message":{"content":"m"}}]}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("m"))
	})

	It("falls back from the agent delta to the agent content", func() {
		ev, err := sse.ParseLine(`data: {"data":{"delta":{"role":"assistant"},"content":[{"text":"c"}]}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("c"))
	})

	Context("thread ids", func() {
		It("reads a top-level thread id", func() {
			ev, err := sse.ParseLine(`data: {"thread_id":"t-1","choices":[{"delta":{"content":"x"}}]}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.ThreadID).To(Equal("t-1"))
			Expect(ev.Fragment).To(Equal("x"))
		})

		It("reads a thread id from an event without text", func() {
			ev, err := sse.ParseLine(`data: {"event":"run.started","data":{"thread_id":"t-2"}}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.HasFragment).To(BeFalse())
			Expect(ev.ThreadID).To(Equal("t-2"))
		})
	})

	It("reports malformed JSON as a ParseError", func() {
		ev, err := sse.ParseLine("data: {not json")
		Expect(err).To(HaveOccurred())
		var perr *sse.ParseError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Line).To(Equal("{not json"))
		Expect(ev.HasFragment).To(BeFalse())
	})
})

var _ = Describe("ParseEnvelopeLine", func() {
	It("accepts bare JSON objects", func() {
		ev, err := sse.ParseEnvelopeLine(`{"event":"message.delta","data":{"delta":{"content":[{"text":"Hi"}]},"thread_id":"t-9"}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("Hi"))
		Expect(ev.ThreadID).To(Equal("t-9"))
	})

	It("does not treat the full message of message.created as a fragment", func() {
		ev, err := sse.ParseEnvelopeLine(`{"event":"message.created","data":{"message":{"content":[{"text":"Hi there"}]},"thread_id":"t-9"}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.HasFragment).To(BeFalse())
		Expect(ev.ThreadID).To(Equal("t-9"))
	})

	It("still understands SSE framing", func() {
		ev, err := sse.ParseEnvelopeLine(`data: {"data":{"content":[{"text":"x"}]}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Fragment).To(Equal("x"))

		ev, err = sse.ParseEnvelopeLine("event: message.delta")
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Kind).To(Equal(sse.KindIgnored))
	})

	It("reports malformed bare JSON", func() {
		_, err := sse.ParseEnvelopeLine("{oops")
		Expect(err).To(HaveOccurred())
	})
})
