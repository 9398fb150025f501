// Package metrics provides Prometheus metrics for the snapshot synchronizer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pull-level metrics
	pullsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapsync_pulls_total",
			Help: "Total number of snapshot pulls",
		},
		[]string{"result"},
	)

	pullDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapsync_pull_duration_seconds",
			Help:    "End-to-end pull duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Per-file metrics
	filesSyncedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapsync_files_synced_total",
			Help: "Total files fetched and persisted",
		},
		[]string{"phase"},
	)

	filesFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapsync_files_failed_total",
			Help: "Total per-file failures",
		},
		[]string{"stage"},
	)

	contentBytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapsync_content_bytes_downloaded_total",
			Help: "Total decoded content bytes fetched from the remote host",
		},
	)

	// Batch metrics
	batchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapsync_batches_total",
			Help: "Total small-file batches processed",
		},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapsync_batch_duration_seconds",
			Help:    "Fetch-and-persist duration per batch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store metrics
	storeQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapsync_store_query_duration_seconds",
			Help:    "Destination store query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// Notifier metrics
	subscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapsync_notifier_subscribers_active",
			Help: "Number of active change-notification subscribers",
		},
	)
)

// RecordPull records a completed pull with its outcome.
func RecordPull(result string, d time.Duration) {
	pullsTotal.WithLabelValues(result).Inc()
	pullDuration.Observe(d.Seconds())
}

// RecordFileSynced increments the synced-file counter for a phase.
func RecordFileSynced(phase string) {
	filesSyncedTotal.WithLabelValues(phase).Inc()
}

// RecordFileFailed increments the failed-file counter for a stage.
func RecordFileFailed(stage string) {
	filesFailedTotal.WithLabelValues(stage).Inc()
}

// AddBytesDownloaded adds to the downloaded-bytes counter.
func AddBytesDownloaded(n int64) {
	contentBytesDownloaded.Add(float64(n))
}

// RecordBatch records one processed batch.
func RecordBatch(d time.Duration) {
	batchesTotal.Inc()
	batchDuration.Observe(d.Seconds())
}

// RecordStoreQuery records a destination store query duration.
func RecordStoreQuery(query string, d time.Duration) {
	storeQueryDuration.WithLabelValues(query).Observe(d.Seconds())
}

// SetSubscribersActive sets the active subscriber gauge.
func SetSubscribersActive(n int64) {
	subscribersActive.Set(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
