package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subvoc_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subvoc_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Upload Metrics
	VideoUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subvoc_video_uploads_total",
			Help: "Total number of video uploads",
		},
		[]string{"status"},
	)

	VideoUploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subvoc_video_upload_size_bytes",
			Help:    "Size of uploaded videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 10), // 1MB to 512MB
		},
	)

	// Billing Metrics
	MinutesChargedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subvoc_minutes_charged_total",
			Help: "Total media minutes charged against account quotas",
		},
	)

	BillableCostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subvoc_billable_cost_total",
			Help: "Total cost accrued beyond free quota allowances",
		},
	)

	QuotaRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subvoc_quota_rejections_total",
			Help: "Total requests rejected for exceeding quota",
		},
	)

	// Pipeline Metrics
	SubtitleJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subvoc_subtitle_jobs_total",
			Help: "Total subtitle generation jobs by outcome",
		},
		[]string{"status"},
	)

	BurnInJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subvoc_burnin_jobs_total",
			Help: "Total subtitle burn-in jobs by outcome",
		},
		[]string{"status"},
	)

	PipelineJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subvoc_pipeline_job_duration_seconds",
			Help:    "Pipeline job processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"kind"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subvoc_queue_depth",
			Help: "Number of localization requests waiting in queue",
		},
	)

	// Dubbing Metrics
	DubbingJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subvoc_dubbing_jobs_total",
			Help: "Total dubbing jobs by outcome",
		},
		[]string{"status"},
	)

	DubbingPollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subvoc_dubbing_polls_total",
			Help: "Total status polls issued to the dubbing provider",
		},
	)

	DubbingWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subvoc_dubbing_wait_duration_seconds",
			Help:    "Time spent waiting for dubbing jobs to complete",
			Buckets: prometheus.ExponentialBuckets(10, 2, 8), // 10s to ~21min
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subvoc_storage_operations_total",
			Help: "Total object storage operations",
		},
		[]string{"operation", "status"},
	)
)
