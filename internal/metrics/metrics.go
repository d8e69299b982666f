package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	batches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsuite",
			Name:      "batches_total",
			Help:      "Total batches by operation and result",
		},
		[]string{"operation", "result"},
	)

	batchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsuite",
			Name:      "batch_duration_seconds",
			Help:      "Duration of batches by operation",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	files = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsuite",
			Name:      "files_processed_total",
			Help:      "Input files by operation and result (success, failed, skipped)",
		},
		[]string{"operation", "result"},
	)

	outputBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsuite",
			Name:      "output_bytes_total",
			Help:      "Bytes of final response payloads by operation",
		},
		[]string{"operation"},
	)

	workspacesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docsuite",
			Name:      "workspaces_swept_total",
			Help:      "Stale workspaces removed by the sweeper",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(batches, batchLatency, files, outputBytes, workspacesSwept)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveBatch(operation, result string, dur time.Duration) {
	batches.WithLabelValues(operation, result).Inc()
	batchLatency.WithLabelValues(operation).Observe(dur.Seconds())
}

func IncFile(operation, result string) { files.WithLabelValues(operation, result).Inc() }

func AddOutputBytes(operation string, n int64) {
	outputBytes.WithLabelValues(operation).Add(float64(n))
}

func AddSwept(n int) { workspacesSwept.Add(float64(n)) }
