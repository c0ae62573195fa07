// Package metrics declares the Prometheus instrumentation surface of
// SPEC_FULL.md §4.12 (C12), grounded on the flat promauto var-block style
// of malbeclabs-doublezero's telemetry services (e.g.
// telemetry/flow-ingest/internal/metrics/metrics.go).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BytesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "addresskit_fetch_bytes_total", Help: "Total bytes written by the resumable fetcher.",
	})
	FetchRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "addresskit_fetch_retries_total", Help: "Fetch retry attempts by failure reason.",
	}, []string{"reason"})
	FetchRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "addresskit_fetch_restarts_total", Help: "Download restarts caused by corruption or a non-resumable response.",
	})

	RowsMapped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "addresskit_rows_mapped_total", Help: "G-NAF rows mapped to documents, by table.",
	}, []string{"table"})
	RowsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "addresskit_rows_rejected_total", Help: "Rows rejected during mapping, by table and severity.",
	}, []string{"table", "severity"})

	BulkRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "addresskit_bulk_requests_total", Help: "Bulk index requests submitted to the search backend.",
	})
	BulkRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "addresskit_bulk_retries_total", Help: "Bulk index requests retried after a top-level error.",
	})
	DocumentsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "addresskit_documents_indexed_total", Help: "Documents successfully indexed.",
	})

	BulkRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "addresskit_bulk_request_duration_seconds", Help: "Latency of a single bulk index request attempt; each retry is observed separately.",
		Buckets: prometheus.DefBuckets,
	})
	ChunkProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "addresskit_chunk_processing_duration_seconds", Help: "Time spent mapping and indexing one CSV chunk, by table.",
		Buckets: prometheus.DefBuckets,
	}, []string{"table"})
)

// Handler exposes the registered metrics for ADDRESSKIT_METRICS_ADDR.
func Handler() http.Handler {
	return promhttp.Handler()
}
