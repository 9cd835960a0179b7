// Package metrics provides Prometheus metrics for the download page server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsweb_session_loads_total",
			Help: "Total number of prepare-download attempts by outcome",
		},
		[]string{"outcome"},
	)

	upstreamRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lsweb_upstream_request_duration_seconds",
			Help:    "Duration of prepare-download requests to the upstream peer",
			Buckets: prometheus.DefBuckets,
		},
	)

	pagesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lsweb_pages_active",
			Help: "Number of download page instances held in memory",
		},
	)

	staleResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lsweb_stale_responses_total",
			Help: "Load results discarded because a newer load had started",
		},
	)
)

// RecordSessionLoad counts one load attempt. outcome is "ready" or an error kind.
func RecordSessionLoad(outcome string, duration time.Duration) {
	sessionLoadsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		upstreamRequestDuration.Observe(duration.Seconds())
	}
}

// SetPagesActive sets the number of page instances in memory.
func SetPagesActive(n int) {
	pagesActive.Set(float64(n))
}

// RecordStaleResponse counts a discarded out-of-order load result.
func RecordStaleResponse() {
	staleResponsesTotal.Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
