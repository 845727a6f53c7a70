package wxerrors_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

var _ = Describe("Error", func() {
	It("matches kind sentinels through wrapping", func() {
		err := fmt.Errorf("generating: %w", wxerrors.Timeout("generate", context.DeadlineExceeded))
		Expect(errors.Is(err, wxerrors.ErrTimeout)).To(BeTrue())
		Expect(errors.Is(err, wxerrors.ErrNetwork)).To(BeFalse())
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
	})

	It("exposes status and body through errors.As", func() {
		err := fmt.Errorf("wrapped: %w", wxerrors.API("generate", 500, "boom"))
		var e *wxerrors.Error
		Expect(errors.As(err, &e)).To(BeTrue())
		Expect(e.StatusCode).To(Equal(500))
		Expect(e.Body).To(Equal("boom"))
		Expect(wxerrors.StatusOf(err)).To(Equal(500))
	})

	It("renders the operation, status and a truncated body", func() {
		err := wxerrors.API("generate_stream", 502, strings.Repeat("x", 1000))
		msg := err.Error()
		Expect(msg).To(HavePrefix("api error in generate_stream (status 502): "))
		Expect(msg).To(HaveSuffix("..."))
		Expect(len(msg)).To(BeNumerically("<", 600))
	})

	DescribeTable("retryability",
		func(err error, retryable bool) {
			Expect(wxerrors.IsRetryable(err)).To(Equal(retryable))
		},
		Entry("network", wxerrors.Network("op", errors.New("reset")), true),
		Entry("timeout", wxerrors.Timeout("op", nil), true),
		Entry("rate limit", wxerrors.FromStatus("op", 429, ""), true),
		Entry("authentication", wxerrors.Authentication("op", "no token"), false),
		Entry("api", wxerrors.API("op", 500, ""), false),
		Entry("serialization", wxerrors.Serialization("op", errors.New("bad json")), false),
		Entry("configuration", wxerrors.Configuration("op", "missing"), false),
		Entry("plain error", errors.New("plain"), false),
		Entry("nil", nil, false),
	)

	DescribeTable("FromStatus",
		func(status int, body string, kind wxerrors.Kind) {
			Expect(wxerrors.FromStatus("op", status, body).Kind).To(Equal(kind))
		},
		Entry("401", 401, "", wxerrors.KindAuthentication),
		Entry("403", 403, "", wxerrors.KindAuthentication),
		Entry("429", 429, "", wxerrors.KindRateLimit),
		Entry("404 model", 404, `{"errors":[{"message":"Model 'x' not found"}]}`, wxerrors.KindModelNotFound),
		Entry("404 project", 404, "project does not exist", wxerrors.KindProjectNotFound),
		Entry("404 other", 404, "nope", wxerrors.KindAPI),
		Entry("500", 500, "", wxerrors.KindAPI),
	)

	It("keeps the innermost category when wrapping twice", func() {
		inner := wxerrors.Authentication("connect", "rejected")
		err := wxerrors.Network("generate", inner)
		Expect(wxerrors.KindOf(err)).To(Equal(wxerrors.KindAuthentication))
	})

	It("returns nil when wrapping nil", func() {
		Expect(wxerrors.Network("op", nil)).To(BeNil())
	})

	It("names unknown kinds", func() {
		Expect(wxerrors.KindOf(errors.New("x"))).To(Equal(wxerrors.KindUnknown))
		Expect(wxerrors.Kind(99).String()).To(Equal("kind(99)"))
	})
})
