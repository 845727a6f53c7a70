package sse_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/sse"
)

var _ = Describe("Accumulator", func() {
	It("concatenates fragments and keeps the latest thread id", func() {
		var acc sse.Accumulator
		acc.Add(sse.Event{Kind: sse.KindPayload, Fragment: "Hel", HasFragment: true})
		acc.Add(sse.Event{Kind: sse.KindPayload, ThreadID: "t-1"})
		acc.Add(sse.Event{Kind: sse.KindPayload, Fragment: "", HasFragment: true})
		acc.Add(sse.Event{Kind: sse.KindPayload, Fragment: "lo", HasFragment: true, ThreadID: "t-2"})
		acc.Add(sse.Event{Kind: sse.KindDone})

		Expect(acc.Text()).To(Equal("Hello"))
		Expect(acc.ThreadID()).To(Equal("t-2"))
		Expect(acc.Fragments()).To(Equal(3))
	})

	It("is empty by default", func() {
		var acc sse.Accumulator
		Expect(acc.Text()).To(BeEmpty())
		Expect(acc.ThreadID()).To(BeEmpty())
	})
})
