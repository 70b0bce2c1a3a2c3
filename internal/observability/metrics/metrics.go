package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics exposes counters/histograms for the chat and image endpoints.
type GenerationMetrics struct {
	requestsTotal     *prometheus.CounterVec
	rateLimitedTotal  *prometheus.CounterVec
	fallbackTotal     *prometheus.CounterVec
	upstreamCallTotal *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
}

func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	m := &GenerationMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total chat/image requests by response status",
		}, []string{"endpoint", "status"}),
		rateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the local fixed-window limiter",
		}, []string{"endpoint"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "generation",
			Name:      "image_fallback_total",
			Help:      "Image fallback state transitions",
		}, []string{"from", "to"}),
		upstreamCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "generation",
			Name:      "upstream_calls_total",
			Help:      "Model client calls by model and outcome",
		}, []string{"model", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studio",
			Subsystem: "generation",
			Name:      "upstream_latency_seconds",
			Help:      "Latency of model client calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"model"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.rateLimitedTotal, m.fallbackTotal, m.upstreamCallTotal, m.upstreamLatency)
	return m
}

func (m *GenerationMetrics) ObserveRequest(endpoint string, status int) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func (m *GenerationMetrics) ObserveRateLimited(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(endpoint).Inc()
}

func (m *GenerationMetrics) ObserveFallback(from, to string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(from, to).Inc()
}

func (m *GenerationMetrics) ObserveUpstreamCall(model, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamCallTotal.WithLabelValues(model, outcome).Inc()
	m.upstreamLatency.WithLabelValues(model).Observe(seconds)
}
