package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	limiterRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slack_limiter_rejections_total",
			Help: "Messages rejected because the destination queue was full",
		},
	)

	limiterQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slack_limiter_queue_depth",
			Help: "Messages currently waiting for a send slot",
		},
	)

	limiterWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slack_limiter_wait_seconds",
			Help:    "Time spent waiting for a send slot",
			Buckets: []float64{0, .1, .25, .5, 1, 2, 5, 10, 30},
		},
	)

	limiterStoreErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slack_limiter_store_errors_total",
			Help: "Shared slot store failures (local spacing was used instead)",
		},
	)

	webhookRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_webhook_requests_total",
			Help: "Webhook POSTs by result class",
		},
		[]string{"result"},
	)

	webhookRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slack_webhook_request_duration_seconds",
			Help:    "Duration of a single webhook POST",
			Buckets: prometheus.DefBuckets,
		},
	)
)
