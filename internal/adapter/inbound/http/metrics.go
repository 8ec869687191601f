// Package http provides the gateway's HTTP transport front-end (C5).
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mcp-fleet/gateway/internal/catalog"
)

// Metrics holds the Prometheus metrics the gateway's observability section
// requires, registered under one namespace the way the teacher's adapter
// does.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	ActiveSessions      prometheus.Gauge
	RefreshOutcomes     *prometheus.CounterVec
	PushQueueDropsTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpgw",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled, by HTTP method and status class",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcpgw",
				Name:      "request_duration_seconds",
				Help:      "Request handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpgw",
				Name:      "active_push_sessions",
				Help:      "Number of open push-endpoint sessions",
			},
		),
		RefreshOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpgw",
				Name:      "catalog_refresh_outcomes_total",
				Help:      "Catalog refresh outcomes per upstream",
			},
			[]string{"upstream", "status"},
		),
		PushQueueDropsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpgw",
				Name:      "push_queue_drops_total",
				Help:      "Total envelopes dropped from a saturated push session queue",
			},
		),
	}
}

// RefreshRecorder adapts Metrics to catalog.RefreshRecorder, incrementing
// RefreshOutcomes by upstream/status for every refresh cycle.
type RefreshRecorder struct{ Metrics *Metrics }

// RecordRefresh satisfies catalog.RefreshRecorder.
func (r RefreshRecorder) RecordRefresh(rec catalog.RefreshRecord) {
	r.Metrics.RefreshOutcomes.WithLabelValues(rec.Upstream, string(rec.Status)).Inc()
}
