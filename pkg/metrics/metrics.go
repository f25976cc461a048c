package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_http_requests_total", Help: "HTTP requests"},
		[]string{"method", "path", "status"},
	)
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DispatchBatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_batches_total", Help: "Batches dispatched"},
	)
	DispatchEmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_emails_sent_total", Help: "Emails sent successfully"},
	)
	DispatchEmailsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_emails_failed_total", Help: "Emails failed terminally"},
	)
	DispatchEmailsRequeued = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_emails_requeued_total", Help: "Emails requeued for retry"},
	)
	DispatchLockContended = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_lock_contended_total", Help: "Lock acquisitions lost to another dispatcher"},
	)
	DispatchBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_batch_duration_seconds",
			Help:    "Time spent dispatching one batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotifyEventsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "notify_events_published_total", Help: "Dispatch summaries published"},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal, APIRequestDuration,
		DispatchBatchesTotal, DispatchEmailsSent, DispatchEmailsFailed,
		DispatchEmailsRequeued, DispatchLockContended, DispatchBatchDuration,
		NotifyEventsPublished,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
