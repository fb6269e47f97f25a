// Package telemetry exposes prometheus metrics for the gossip service.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gossip results.
const (
	ResultAccepted     = "accepted"
	ResultNoTreeHead   = "no_tree_head"
	ResultInvalid      = "invalid"
	ResultNoAnchor     = "no_anchor"
	ResultInconsistent = "inconsistent"
	ResultPersistError = "persist_error"
	ResultVerifyError  = "verify_error"
	ResultExchangeErr  = "exchange_error"
	ResultStale        = "stale"
	ResultOK           = "ok"
	ResultError        = "error"
)

var (
	Registry = prometheus.NewRegistry()

	GossipTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ktgossip",
			Name:      "gossip_total",
			Help:      "Gossip messages processed, by result.",
		},
		[]string{"result"},
	)

	MonitorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ktgossip",
			Name:      "monitor_runs_total",
			Help:      "Monitor runs, by result.",
		},
		[]string{"result"},
	)

	SaveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ktgossip",
			Name:      "state_saves_total",
			Help:      "Trust state save attempts, by result.",
		},
		[]string{"result"},
	)

	VerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ktgossip",
			Name:      "verify_duration_seconds",
			Help:      "Time spent in the verifier.",
			// 100us .. ~1.6s.
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
		[]string{"path"},
	)

	TreeSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ktgossip",
			Name:      "trusted_tree_size",
			Help:      "Tree size of the trusted checkpoints.",
		},
		[]string{"head"},
	)
)

func init() {
	Registry.MustRegister(GossipTotal, MonitorTotal, SaveTotal, VerifyDuration, TreeSize)
}

// MetricsHandler exposes /metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveVerify records how long a verifier call on path took.
func ObserveVerify(path string, start time.Time) {
	VerifyDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}
