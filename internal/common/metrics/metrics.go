// internal/common/metrics/metrics.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	ReportSectionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_sections_processed_total",
			Help: "Report sections processed, by outcome (success, fallback, failed)",
		},
		[]string{"section", "outcome"},
	)

	ReportSectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_section_duration_seconds",
			Help:    "Time spent producing one report section",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"section"},
	)

	GenerationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_generation_requests_total",
			Help: "Chat-completion calls, by classified result",
		},
		[]string{"result"},
	)

	GenerationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_generation_cache_hits_total",
			Help: "Generation responses served from the Redis cache",
		},
	)

	ExamplesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "report_examples_loaded",
			Help: "Number of few-shot examples held by the example store",
		},
	)

	IntegrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_integration_errors_total",
			Help: "Generated texts that could not be written into the report",
		},
		[]string{"code"},
	)
)

// Prometheus records section outcomes on the package-level collectors.
type Prometheus struct{}

func (Prometheus) RecordSection(_ context.Context, section, outcome string, d time.Duration) {
	ReportSectionsProcessed.WithLabelValues(section, outcome).Inc()
	ReportSectionDuration.WithLabelValues(section).Observe(d.Seconds())
}

func (Prometheus) RecordGeneration(_ context.Context, result string) {
	GenerationRequests.WithLabelValues(result).Inc()
}
