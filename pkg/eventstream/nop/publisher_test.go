package nop_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/eventstream"
	"github.com/papercomputeco/watsonx/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("satisfies the eventstream.Publisher interface", func() {
		var p eventstream.Publisher = nop.NewPublisher()
		Expect(p).NotTo(BeNil())
	})

	It("returns ErrNilEvent for nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishGeneration(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishGeneration(context.Background(), eventstream.NewGenerationEvent("generate", time.Now()))
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
