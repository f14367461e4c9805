package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scan metrics
	FilesScanned prometheus.Counter

	// Upload metrics
	UploadsTotal          *prometheus.CounterVec
	UploadDurationSeconds prometheus.Histogram
	UploadBytesTotal      prometheus.Counter
	PendingFiles          prometheus.Gauge

	// Circuit breaker metrics
	BreakerTripsTotal prometheus.Counter

	// Health metrics
	HealthStatus *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all required metrics registered
func NewMetrics() *Metrics {
	return &Metrics{
		// Scan metrics
		FilesScanned: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "medialift_files_scanned_total",
				Help: "Total number of media files cataloged by scans",
			},
		),

		// Upload metrics
		UploadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medialift_uploads_total",
				Help: "Total number of upload attempts by outcome",
			},
			[]string{"outcome"},
		),
		UploadDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "medialift_upload_duration_seconds",
				Help: "Duration of upload attempts in seconds",
			},
		),
		UploadBytesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "medialift_upload_bytes_total",
				Help: "Total number of bytes successfully uploaded",
			},
		),
		PendingFiles: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "medialift_pending_files",
				Help: "Number of files awaiting upload at the start of the last run",
			},
		),

		// Circuit breaker metrics
		BreakerTripsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "medialift_breaker_trips_total",
				Help: "Total number of consecutive-error circuit breaker trips",
			},
		),

		// Health metrics
		HealthStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "medialift_health_status",
				Help: "Health status of dependencies (1=ok, 0=down)",
			},
			[]string{"dependency"},
		),
	}
}

// InitializeMetrics sets up default values for metrics
func InitializeMetrics() *Metrics {
	metrics := NewMetrics()

	// Initialize health metrics with default values
	metrics.HealthStatus.WithLabelValues("database").Set(0)
	metrics.HealthStatus.WithLabelValues("remote").Set(0)

	return metrics
}
