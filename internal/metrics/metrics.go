// Package metrics exposes Prometheus collectors for inbound HTTP traffic and
// outbound upstream calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adcreative"

// Collector groups the service collectors. A nil *Collector is valid and
// records nothing, which keeps clients usable in tests without a registry.
type Collector struct {
	gatherer prometheus.Gatherer

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	upstreamCalls    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamRetries  *prometheus.CounterVec
}

// NewCollector registers the collectors on reg. Pass prometheus.NewRegistry()
// for isolation; the same value is used to serve /metrics.
func NewCollector(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		gatherer: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Inbound HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		upstreamCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Outbound upstream attempts by outcome kind.",
		}, []string{"upstream", "operation", "outcome"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Outbound upstream attempt latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"upstream", "operation"}),
		upstreamRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Retries issued after a transient upstream failure.",
		}, []string{"upstream", "operation"}),
	}
}

// ObserveHTTP records one inbound request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveUpstream records one outbound attempt. outcome is "ok" or an error kind.
func (c *Collector) ObserveUpstream(upstream, operation, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.upstreamCalls.WithLabelValues(upstream, operation, outcome).Inc()
	c.upstreamDuration.WithLabelValues(upstream, operation).Observe(elapsed.Seconds())
}

// ObserveRetry records a retry of an outbound call.
func (c *Collector) ObserveRetry(upstream, operation string) {
	if c == nil {
		return
	}
	c.upstreamRetries.WithLabelValues(upstream, operation).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
