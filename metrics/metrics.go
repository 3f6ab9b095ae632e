// Package metrics exposes Prometheus metrics for the object server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gridfetch"

var (
	// ChunksServed counts chunks written to clients.
	ChunksServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_served_total",
			Help:      "Total number of object chunks written to clients",
		},
	)

	// BytesServed counts object bytes written to clients.
	BytesServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_served_total",
			Help:      "Total number of object bytes written to clients",
		},
	)

	// StreamsAborted counts responses cut off after headers were sent.
	StreamsAborted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_aborted_total",
			Help:      "Total number of object streams aborted after the status line was sent",
		},
		[]string{"op"}, // "read" / "write"
	)

	// ConnectFailures counts backend connection failures by reason.
	ConnectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_connect_failures_total",
			Help:      "Total number of failed backend connection attempts",
		},
		[]string{"reason"},
	)

	// LookupDuration observes object lookups by outcome.
	LookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Object lookup duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"result"}, // "found" / "not_found" / "error"
	)
)

func init() {
	prometheus.MustRegister(ChunksServed)
	prometheus.MustRegister(BytesServed)
	prometheus.MustRegister(StreamsAborted)
	prometheus.MustRegister(ConnectFailures)
	prometheus.MustRegister(LookupDuration)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
