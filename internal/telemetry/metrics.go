package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	AggregatorErrors *prometheus.CounterVec
	LabelsPurchased  *prometheus.CounterVec
}

// NewMetrics creates Prometheus metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepost_requests_total",
				Help: "Total number of requests by operation, aggregator, and status",
			},
			[]string{"operation", "aggregator", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepost_request_duration_seconds",
				Help:    "Request duration in seconds by operation and aggregator",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "aggregator"},
		),
		AggregatorErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepost_aggregator_errors_total",
				Help: "Total failed operations by aggregator and error kind",
			},
			[]string{"aggregator", "error_type"},
		),
		LabelsPurchased: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepost_labels_purchased_total",
				Help: "Total labels purchased by carrier",
			},
			[]string{"carrier"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, aggregator, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, aggregator, status).Inc()
	m.RequestDuration.WithLabelValues(operation, aggregator).Observe(duration)
}

// RecordError records a failed operation.
func (m *Metrics) RecordError(aggregator, errorType string) {
	m.AggregatorErrors.WithLabelValues(aggregator, errorType).Inc()
}

// RecordLabel records a purchased label.
func (m *Metrics) RecordLabel(carrier string) {
	m.LabelsPurchased.WithLabelValues(carrier).Inc()
}
