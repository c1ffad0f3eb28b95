package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"publish-notifier/internal/domain/entity"
)

var (
	// notifyRequestsTotal counts notification outcomes per category.
	notifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_requests_total",
			Help: "Total number of notification requests by outcome",
		},
		[]string{"category", "status"}, // status: success|failed|skipped
	)

	notifyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notify_request_duration_seconds",
			Help:    "End-to-end notification duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 3.5, 5, 10, 15},
		},
		[]string{"category"},
	)

	notifyDeliveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_delivery_attempts_total",
			Help: "Total number of webhook delivery attempts",
		},
		[]string{"category", "result"}, // result: success|failed|rate_limited|timeout
	)

	// logWriteFailuresTotal counts delivery log rows that could not be written.
	logWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_log_write_failures_total",
			Help: "Total number of delivery log rows that failed to persist",
		},
	)

	newsMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_news_messages_total",
			Help: "Total number of news digest messages delivered",
		},
	)
)

func recordOutcome(category entity.Category, status entity.DeliveryStatus, elapsed time.Duration) {
	label := string(category)
	if label == "" {
		label = "unknown"
	}
	notifyRequestsTotal.WithLabelValues(label, string(status)).Inc()
	notifyRequestDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func recordAttempt(category entity.Category, result string) {
	notifyDeliveryAttemptsTotal.WithLabelValues(string(category), result).Inc()
}
