package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded by the request pipeline.
// Pass to NewClient via WithMetrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RefreshesTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockdeck",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of backend API requests",
			},
			[]string{"method", "code"}, // code=HTTP status or "transport"
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stockdeck",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Backend request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RefreshesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockdeck",
				Subsystem: "api",
				Name:      "token_refreshes_total",
				Help:      "Total access-token refresh attempts",
			},
			[]string{"outcome"}, // outcome=success/failure/coalesced
		),
	}
}

// Refresh outcome label values.
const (
	refreshOutcomeSuccess   = "success"
	refreshOutcomeFailure   = "failure"
	refreshOutcomeCoalesced = "coalesced"
)

func (m *Metrics) observeRequest(method, code string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, code).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) countRefresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshesTotal.WithLabelValues(outcome).Inc()
}
