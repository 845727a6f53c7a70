package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/metrics"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

var (
	_ watsonx.Observer     = (*metrics.Collector)(nil)
	_ orchestrate.Observer = (*metrics.Collector)(nil)
)

var _ = Describe("Collector", func() {
	var c *metrics.Collector

	BeforeEach(func() {
		c = metrics.New()
	})

	It("counts requests by outcome", func() {
		c.ObserveRequest("generate", nil, time.Second)
		c.ObserveRequest("generate", nil, time.Second)
		c.ObserveRequest("generate", wxerrors.Timeout("generate", context.DeadlineExceeded), time.Second)

		Expect(testutil.GatherAndCount(c.Registry(), "watsonx_requests_total")).To(Equal(2))
		Expect(testutil.GatherAndCount(c.Registry(), "watsonx_request_duration_seconds")).To(Equal(1))
	})

	It("counts parse errors and batch items", func() {
		c.ObserveParseError("chat_stream")
		c.ObserveBatchItem(nil)
		c.ObserveBatchItem(wxerrors.Network("batch", errors.New("reset")))

		Expect(testutil.GatherAndCount(c.Registry(), "watsonx_sse_parse_errors_total")).To(Equal(1))
		Expect(testutil.GatherAndCount(c.Registry(), "watsonx_batch_items_total")).To(Equal(2))
	})

	DescribeTable("Outcome",
		func(err error, want string) {
			Expect(metrics.Outcome(err)).To(Equal(want))
		},
		Entry("nil", nil, "success"),
		Entry("canceled", fmt.Errorf("generate: %w", context.Canceled), "canceled"),
		Entry("categorized", wxerrors.FromStatus("generate", 429, ""), "rate_limit"),
		Entry("plain", errors.New("boom"), "unknown"),
	)

	It("serves the exposition format", func() {
		c.ObserveRequest("list_models", nil, 10*time.Millisecond)

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

		body, err := io.ReadAll(rec.Result().Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`watsonx_requests_total{op="list_models",outcome="success"} 1`))
		Expect(string(body)).To(ContainSubstring("go_goroutines"))
	})
})
