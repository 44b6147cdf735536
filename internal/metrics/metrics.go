package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scanner metrics
var (
	ScannerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_scanner_operations_total",
			Help: "Total number of library scan operations",
		},
		[]string{"operation", "status"},
	)

	ScannerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photomedit_scanner_operation_duration_seconds",
			Help:    "Library scan operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ScannerItemsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photomedit_scanner_items_returned",
			Help:    "Number of items returned per scan operation",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"operation"},
	)

	ScanCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photomedit_scan_cache_hits_total",
			Help: "Total number of scan cache hits",
		},
	)

	ScanCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photomedit_scan_cache_misses_total",
			Help: "Total number of scan cache misses",
		},
	)
)

// Metadata codec metrics
var (
	MetadataReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_metadata_reads_total",
			Help: "Total number of logical metadata reads by source",
		},
		[]string{"source", "status"}, // source: "sidecar", "embedded", "none"
	)

	MetadataWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_metadata_writes_total",
			Help: "Total number of metadata writes by target store",
		},
		[]string{"target", "status"}, // target: "sidecar", "embedded"
	)

	TagToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_tag_tool_invocations_total",
			Help: "Total number of external tag tool invocations",
		},
		[]string{"operation", "status"},
	)
)

// Atomic file writer metrics
var (
	AtomicWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_atomic_writes_total",
			Help: "Total number of atomic write operations",
		},
		[]string{"status"},
	)
)

// Filesystem retry metrics (NAS resilience)
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_filesystem_stale_errors_total",
			Help: "Total number of NFS stale file handle errors encountered",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)
)

// Upload metrics
var (
	UploadBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_upload_batches_total",
			Help: "Total number of upload batches by outcome",
		},
		[]string{"status"},
	)

	UploadFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_upload_files_total",
			Help: "Total number of uploaded files by outcome",
		},
		[]string{"status"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photomedit_upload_bytes_total",
			Help: "Total bytes stored by upload ingestion",
		},
	)
)

// Export metrics
var (
	ExportArchivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomedit_export_archives_total",
			Help: "Total number of export archives built by outcome",
		},
		[]string{"status"},
	)

	ExportFilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photomedit_export_files_total",
			Help: "Total number of media files added to export archives",
		},
	)
)
