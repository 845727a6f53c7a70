package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/watsonx/pkg/eventstream"
	"github.com/papercomputeco/watsonx/pkg/eventstream/kafka"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		ctx    context.Context
		writer *fakeWriter
		pub    *kafka.Publisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		writer = &fakeWriter{}
		pub = kafka.NewPublisherWithWriter(writer, "test.topic")
	})

	It("requires brokers", func() {
		_, err := kafka.NewPublisher(kafka.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("configures a hash-balanced writer on the default topic", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).NotTo(HaveOccurred())
		defer p.Close()

		w := p.Writer()
		Expect(w).NotTo(BeNil())
		Expect(w.Topic).To(Equal(kafka.DefaultTopic))
		Expect(w.Balancer).To(BeAssignableToTypeOf(&kafkago.Hash{}))
	})

	It("rejects nil events", func() {
		Expect(pub.PublishGeneration(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.messages).To(BeEmpty())
	})

	It("writes the event as JSON keyed by thread", func() {
		event := eventstream.NewGenerationEvent("agent", time.Now())
		event.ThreadID = "thread-7"
		event.Text = "hello"
		event.Success = true

		Expect(pub.PublishGeneration(ctx, event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("thread-7"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeGenerationCompleted)}))

		var decoded eventstream.GenerationEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Text).To(Equal("hello"))
	})

	It("wraps write failures", func() {
		writer.err = errors.New("broker down")
		event := eventstream.NewGenerationEvent("generate", time.Now())

		err := pub.PublishGeneration(ctx, event)
		Expect(err).To(MatchError(ContainSubstring("broker down")))
		Expect(err).To(MatchError(ContainSubstring("test.topic")))
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
