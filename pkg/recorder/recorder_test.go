package recorder_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/eventstream"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/recorder"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.GenerationEvent
	err    error
}

func (c *capturePublisher) PublishGeneration(_ context.Context, e *eventstream.GenerationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }

// blockingStore holds every Record until release is closed.
type blockingStore struct {
	*history.MemoryStore
	release chan struct{}
}

func (b *blockingStore) Record(ctx context.Context, e *history.Entry) error {
	<-b.release
	return b.MemoryStore.Record(ctx, e)
}

var _ = Describe("Pool", func() {
	var (
		ctx   context.Context
		store *history.MemoryStore
		pub   *capturePublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = history.NewMemoryStore()
		pub = &capturePublisher{}
	})

	It("requires a store", func() {
		_, err := recorder.NewPool(&recorder.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("records history and publishes an event per job", func() {
		p, err := recorder.NewPool(&recorder.Config{Store: store, Publisher: pub, Surface: "gateway"})
		Expect(err).NotTo(HaveOccurred())

		job := recorder.NewJob(history.KindGenerate, "ibm/granite-4-h-small", "hi", time.Now(), "hello", nil)
		job.RequestID = "req-1"
		Expect(p.Enqueue(job)).To(BeTrue())
		Expect(p.Enqueue(recorder.NewJob(history.KindChat, "m", "q", time.Now(), "", errors.New("boom")))).To(BeTrue())
		p.Close()

		entries, err := store.List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))

		Expect(pub.events).To(HaveLen(2))
		var ok, failed *eventstream.GenerationEvent
		for _, e := range pub.events {
			if e.Success {
				ok = e
			} else {
				failed = e
			}
		}
		Expect(ok).NotTo(BeNil())
		Expect(ok.RequestID).To(Equal("req-1"))
		Expect(ok.Text).To(Equal("hello"))
		Expect(ok.Source.Surface).To(Equal("gateway"))
		Expect(failed).NotTo(BeNil())
		Expect(failed.Error).To(Equal("boom"))
	})

	It("keeps recording when publishing fails", func() {
		pub.err = errors.New("broker down")
		p, err := recorder.NewPool(&recorder.Config{Store: store, Publisher: pub})
		Expect(err).NotTo(HaveOccurred())

		p.Enqueue(recorder.NewJob(history.KindStream, "m", "p", time.Now(), "t", nil))
		p.Close()

		entries, err := store.List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("drops jobs when the queue is full", func() {
		bs := &blockingStore{MemoryStore: store, release: make(chan struct{})}
		p, err := recorder.NewPool(&recorder.Config{Store: bs, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		job := recorder.NewJob(history.KindGenerate, "m", "p", time.Now(), "t", nil)

		// one job held by the worker, one in the queue
		Expect(p.Enqueue(job)).To(BeTrue())
		Eventually(func() bool { return p.Enqueue(job) }).Should(BeTrue())
		Expect(p.Enqueue(job)).To(BeFalse())

		close(bs.release)
		p.Close()

		entries, err := store.List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
	})

	It("rejects jobs after close and tolerates a second close", func() {
		p, err := recorder.NewPool(&recorder.Config{Store: store})
		Expect(err).NotTo(HaveOccurred())
		p.Close()

		Expect(p.Enqueue(recorder.NewJob(history.KindGenerate, "m", "p", time.Now(), "", nil))).To(BeFalse())
		Expect(p.Close).NotTo(Panic())
	})
})
