package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// PDF renderer metrics
	RendersInFlight prometheus.Gauge
	RendersTotal    *prometheus.CounterVec

	// Dispatcher metrics
	ChannelSendsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"method", "path"}),
		RendersInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pdf_renders_in_flight",
			Help:      "Number of PDF render processes currently running",
		}),
		RendersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_renders_total",
			Help:      "Total number of PDF render attempts by outcome",
		}, []string{"outcome"}),
		ChannelSendsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_sends_total",
			Help:      "Total number of per-channel send attempts by outcome",
		}, []string{"channel", "outcome"}),
	}
}

// RenderStarted marks a render in flight. Safe on a nil receiver so services
// can run without metrics in tests.
func (m *Metrics) RenderStarted() {
	if m == nil {
		return
	}
	m.RendersInFlight.Inc()
}

func (m *Metrics) RenderFinished(outcome string) {
	if m == nil {
		return
	}
	m.RendersInFlight.Dec()
	m.RendersTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ChannelSend(channel, outcome string) {
	if m == nil {
		return
	}
	m.ChannelSendsTotal.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) HTTPRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
