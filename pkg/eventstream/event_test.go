package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/eventstream"
)

var _ = Describe("Event", func() {
	now := time.Unix(1735689600, 0)

	It("fills the envelope", func() {
		event := eventstream.NewGenerationEvent("generate", now)

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal("watsonx.generation.completed"))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.EmittedAt).To(Equal(now.UTC()))
		Expect(event.Kind).To(Equal("generate"))
	})

	It("marshals with the expected top-level keys", func() {
		event := eventstream.NewGenerationEvent("chat", now)
		event.Source = eventstream.EventSource{Surface: "gateway"}
		event.Model = "ibm/granite-4-h-small"
		event.Prompt = "hello"
		event.Text = "hi"
		event.DurationMs = 2000
		event.Success = true

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		for _, key := range []string{"schema_version", "event_type", "event_id", "emitted_at", "source", "kind", "model", "prompt", "text", "duration_ms", "success"} {
			Expect(got).To(HaveKey(key))
		}
		Expect(got).NotTo(HaveKey("error"))
		Expect(got).NotTo(HaveKey("thread_id"))
	})

	It("keys agent turns by thread", func() {
		event := eventstream.NewGenerationEvent("agent", now)
		Expect(event.PartitionKey()).To(Equal(event.EventID))

		event.ThreadID = "thread-1"
		Expect(event.PartitionKey()).To(Equal("thread-1"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil generation event"))
	})
})
