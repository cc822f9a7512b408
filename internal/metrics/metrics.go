// Package metrics holds the Prometheus collectors for filesystem callbacks
// and ingest runs.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Callbacks counts filesystem callbacks by operation and outcome
	// (ok, not_found, unsupported, error).
	Callbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monfs_vfs_callbacks_total",
		Help: "Filesystem callbacks handled, by operation and outcome.",
	}, []string{"op", "outcome"})

	// StoreLatency observes store round-trips made by callbacks.
	StoreLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "monfs_store_request_duration_seconds",
		Help:    "Latency of store queries issued by filesystem callbacks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	// IngestedRecords counts records written by migrate.
	IngestedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monfs_ingest_records_total",
		Help: "Records inserted by the ingest pipeline.",
	})

	// IngestFailures counts files the ingest pipeline gave up on.
	IngestFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monfs_ingest_file_failures_total",
		Help: "Files skipped by the ingest pipeline because of an error.",
	})
)

// MustRegister registers the collectors with reg. Registering twice with
// the same registry is a no-op; any other failure panics.
func MustRegister(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{Callbacks, StoreLatency, IngestedRecords, IngestFailures} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}
