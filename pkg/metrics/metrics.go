// Package metrics exposes Prometheus collectors for watsonx and orchestrate
// requests.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

const namespace = "watsonx"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeCanceled = "canceled"
)

// Collector records request outcomes on its own registry. It satisfies the
// observer interfaces of pkg/watsonx and pkg/orchestrate.
type Collector struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	parseErrors *prometheus.CounterVec
	batchItems  *prometheus.CounterVec
}

// New registers the collectors, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests by operation and outcome. The outcome is the error kind for failures.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by operation, including reading streamed responses.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"op"}),
		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_parse_errors_total",
			Help:      "Stream lines skipped because their payload was not valid JSON.",
		}, []string{"op"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Batch items by outcome.",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(
		c.requests,
		c.duration,
		c.parseErrors,
		c.batchItems,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// ObserveRequest counts one operation and records its latency.
func (c *Collector) ObserveRequest(op string, err error, d time.Duration) {
	c.requests.WithLabelValues(op, Outcome(err)).Inc()
	c.duration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveParseError counts one skipped stream line.
func (c *Collector) ObserveParseError(op string) {
	c.parseErrors.WithLabelValues(op).Inc()
}

// ObserveBatchItem counts one finished batch item.
func (c *Collector) ObserveBatchItem(err error) {
	c.batchItems.WithLabelValues(Outcome(err)).Inc()
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Outcome is the label for err: "success", "canceled", or the lower case
// error kind.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return wxerrors.KindOf(err).String()
	}
}
