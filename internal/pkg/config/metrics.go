package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks configuration fallbacks for one component. Series are
// prefixed with the component name, e.g. news_sync_config_fallbacks_total.
type Metrics struct {
	loadTimestamp  prometheus.Gauge
	fallbacks      *prometheus.CounterVec
	fallbackActive prometheus.Gauge
}

// NewMetrics registers the component's config metrics on reg.
func NewMetrics(component string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loadTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: component + "_config_load_timestamp",
			Help: "Unix timestamp of the last configuration load.",
		}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: component + "_config_fallbacks_total",
			Help: "Configuration values replaced by their default.",
		}, []string{"field"}),
		fallbackActive: f.NewGauge(prometheus.GaugeOpts{
			Name: component + "_config_fallback_active",
			Help: "1 while any configuration value is a fallback.",
		}),
	}
}

// RecordFallback counts a rejected value for field.
func (m *Metrics) RecordFallback(field string) {
	m.fallbacks.WithLabelValues(field).Inc()
}

// RecordLoad stamps the load time and whether any fallback is in effect.
func (m *Metrics) RecordLoad(fallbackActive bool) {
	m.loadTimestamp.SetToCurrentTime()
	if fallbackActive {
		m.fallbackActive.Set(1)
	} else {
		m.fallbackActive.Set(0)
	}
}
