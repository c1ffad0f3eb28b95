package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks news sync runs.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	ItemsNotifiedTotal prometheus.Counter
	MessagesSentTotal  prometheus.Counter
	LastSuccess        prometheus.Gauge
	Cursor             prometheus.Gauge
}

// NewMetrics registers the worker metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "news_sync_runs_total",
			Help: "News sync runs by result (success, failure, empty).",
		}, []string{"result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "news_sync_run_duration_seconds",
			Help:    "Wall time of one news sync run.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		ItemsNotifiedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "news_sync_items_total",
			Help: "News items handed to the notifier.",
		}),
		MessagesSentTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "news_sync_messages_sent_total",
			Help: "Slack digest messages delivered by the worker.",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "news_sync_last_success_timestamp",
			Help: "Unix timestamp of the last run that finished without failure.",
		}),
		Cursor: f.NewGauge(prometheus.GaugeOpts{
			Name: "news_sync_cursor_timestamp",
			Help: "Publish time of the newest news item already handed off.",
		}),
	}
}

// RecordRun observes one finished run.
func (m *Metrics) RecordRun(result string, d time.Duration) {
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDuration.Observe(d.Seconds())
	if result != "failure" {
		m.LastSuccess.SetToCurrentTime()
	}
}

// RecordBatch adds one NotifyNews outcome.
func (m *Metrics) RecordBatch(items, messages int) {
	m.ItemsNotifiedTotal.Add(float64(items))
	m.MessagesSentTotal.Add(float64(messages))
}

// SetCursor exports the cursor position.
func (m *Metrics) SetCursor(t time.Time) {
	m.Cursor.Set(float64(t.Unix()))
}
