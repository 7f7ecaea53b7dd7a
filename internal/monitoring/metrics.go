package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 邮箱指标
	InboxesCreated prometheus.Counter
	InboxesTotal   prometheus.Gauge

	// 投递指标
	MessagesReceived prometheus.Counter
	MessagesRejected *prometheus.CounterVec
	MessagesTotal    prometheus.Gauge
	AttachmentBytes  prometheus.Counter

	// 清理指标
	SweepRuns       prometheus.Counter
	MessagesSwept   prometheus.Counter
	SweepFileErrors prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dropmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		InboxesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dropmail_inboxes_created_total",
				Help: "Total number of inboxes created",
			},
		),

		InboxesTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dropmail_inboxes",
				Help: "Current number of inboxes",
			},
		),

		MessagesReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dropmail_messages_received_total",
				Help: "Total number of messages accepted via SMTP",
			},
		),

		MessagesRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dropmail_messages_rejected_total",
				Help: "Total number of rejected deliveries by reason",
			},
			[]string{"reason"},
		),

		MessagesTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dropmail_messages",
				Help: "Current number of stored messages",
			},
		),

		AttachmentBytes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dropmail_attachment_bytes_total",
				Help: "Total attachment bytes written to disk",
			},
		),

		SweepRuns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dropmail_sweep_runs_total",
				Help: "Total number of expiry sweep runs",
			},
		),

		MessagesSwept: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dropmail_messages_swept_total",
				Help: "Total number of messages removed by the sweeper",
			},
		),

		SweepFileErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "dropmail_sweep_file_errors_total",
				Help: "Total number of attachment deletions that failed during sweeps",
			},
		),
	}
}
