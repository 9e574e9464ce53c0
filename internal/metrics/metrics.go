// Package metrics exposes the Prometheus instrumentation for the order
// book maintainer: how many mutations land, how many are dropped as stale
// or rejected as gaps, decode failures on the wire codec, and the resting
// depth per side.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the service registers.
type Metrics struct {
	UpdatesApplied   *prometheus.CounterVec
	UpdatesStale     *prometheus.CounterVec
	UpdatesGapped    *prometheus.CounterVec
	DecodeFailures   *prometheus.CounterVec
	DesyncEvents     *prometheus.CounterVec
	ResyncEvents     *prometheus.CounterVec
	MutationLatency  *prometheus.HistogramVec
	RestingLevels    *prometheus.GaugeVec
	CircuitBreakerState *prometheus.GaugeVec
}

// New constructs and registers every collector.
func New() *Metrics {
	return &Metrics{
		UpdatesApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_updates_applied_total",
			Help: "Total number of level updates applied to a book.",
		}, []string{"instrument"}),
		UpdatesStale: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_updates_stale_total",
			Help: "Total number of stale/duplicate updates dropped.",
		}, []string{"instrument"}),
		UpdatesGapped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_updates_gapped_total",
			Help: "Total number of updates rejected for a sequence gap.",
		}, []string{"instrument"}),
		DecodeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_decode_failures_total",
			Help: "Total number of wire messages that failed to decode.",
		}, []string{"message_type"}),
		DesyncEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_desync_events_total",
			Help: "Total number of book.desync notifications published.",
		}, []string{"instrument"}),
		ResyncEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_resync_events_total",
			Help: "Total number of book.resynced notifications published.",
		}, []string{"instrument"}),
		MutationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orderbook_mutation_latency_seconds",
			Help:    "Latency of a single book mutation (AddLevel/RemoveLevel).",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"op"}),
		RestingLevels: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orderbook_resting_levels",
			Help: "Current number of distinct resting price levels.",
		}, []string{"instrument", "side"}),
		CircuitBreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orderbook_notify_circuit_breaker_state",
			Help: "Notification circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
	}
}
