// Package metrics defines the prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bus_archive"

type Metrics struct {
	CitiesSucceeded  prometheus.Counter
	CitiesFailed     prometheus.Counter
	RecordsIngested  prometheus.Counter
	BlobBytesWritten prometheus.Counter
	DatesAggregated  prometheus.Counter
	RecordsSkipped   prometheus.Counter
}

// New registers the pipeline collectors on reg and returns them. Pass
// prometheus.NewRegistry() in tests to keep registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CitiesSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_cities_succeeded_total",
			Help:      "City fetches that produced records (or confirmed empty days).",
		}),
		CitiesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_cities_failed_total",
			Help:      "City fetches that failed and were excluded from the blob.",
		}),
		RecordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Trip records written into daily blobs.",
		}),
		BlobBytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_blob_bytes_total",
			Help:      "Bytes written to the object store.",
		}),
		DatesAggregated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_dates_total",
			Help:      "Per-date aggregation passes completed.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_records_skipped_total",
			Help:      "Malformed records skipped while folding blobs.",
		}),
	}

	reg.MustRegister(
		m.CitiesSucceeded,
		m.CitiesFailed,
		m.RecordsIngested,
		m.BlobBytesWritten,
		m.DatesAggregated,
		m.RecordsSkipped,
	)

	return m
}
