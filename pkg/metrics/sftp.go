package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SFTPMetrics provides observability for the SFTP request loop.
//
// Implementations collect per-operation request counts and latencies, the
// bytes moved by READ and WRITE, and sshfs restarts. The interface is
// optional - a nil instance passed to the server selects the no-op
// implementation.
type SFTPMetrics interface {
	// RecordRequest records a completed request with its operation name,
	// duration, and the framing-layer error, if any.
	RecordRequest(operation string, duration time.Duration, err error)

	// RecordBytesTransferred records bytes read or written.
	// direction is "read" or "write".
	RecordBytesTransferred(direction string, bytes int64)

	// RecordHelperRestart increments the sshfs recovery counter.
	RecordHelperRestart()
}

type sftpMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	bytesTransferred *prometheus.CounterVec
	helperRestarts   prometheus.Counter
}

// NewSFTPMetrics creates a Prometheus-backed SFTPMetrics instance, or a
// no-op one when the registry was never initialized.
func NewSFTPMetrics() SFTPMetrics {
	if !IsEnabled() {
		return &noopSFTPMetrics{}
	}

	reg := GetRegistry()

	return &sftpMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sshfsd_sftp_requests_total",
				Help: "Total number of SFTP requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "sshfsd_sftp_request_duration_seconds",
				Help: "Duration of SFTP requests in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.01,
					0.025,
					0.05,
					0.1,
					0.25,
					0.5,
					1.0,
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sshfsd_sftp_bytes_transferred_total",
				Help: "Total bytes transferred via SFTP read and write",
			},
			[]string{"direction"},
		),
		helperRestarts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "sshfsd_sshfs_restarts_total",
				Help: "Total number of sshfs recovery restarts",
			},
		),
	}
}

// NewNoopSFTPMetrics returns the zero-overhead implementation.
func NewNoopSFTPMetrics() SFTPMetrics {
	return &noopSFTPMetrics{}
}

func (m *sftpMetrics) RecordRequest(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *sftpMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *sftpMetrics) RecordHelperRestart() {
	m.helperRestarts.Inc()
}

// noopSFTPMetrics is a no-op implementation with zero overhead.
type noopSFTPMetrics struct{}

func (noopSFTPMetrics) RecordRequest(operation string, duration time.Duration, err error) {}
func (noopSFTPMetrics) RecordBytesTransferred(direction string, bytes int64)              {}
func (noopSFTPMetrics) RecordHelperRestart()                                              {}
