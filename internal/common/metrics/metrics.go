package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_submissions_total",
			Help: "Submissions by outcome path (remote, local_fallback, rejected, failed)",
		},
		[]string{"path"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apply_submission_duration_seconds",
			Help:    "End-to-end submission duration including notification dispatch",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"path"},
	)

	ValidationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_validation_rejections_total",
			Help: "Submissions rejected by form validation, by field",
		},
		[]string{"field"},
	)

	NotificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_notification_attempts_total",
			Help: "Notification send attempts by channel and status",
		},
		[]string{"channel", "status"},
	)

	RelayInitAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_relay_init_attempts_total",
			Help: "Relay initialization attempts by outcome",
		},
		[]string{"outcome"},
	)

	FallbackNotices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_fallback_notices_total",
			Help: "Local notices posted, by kind",
		},
		[]string{"kind"},
	)

	SettingsSync = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apply_settings_sync_total",
			Help: "Admin settings sync operations by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
