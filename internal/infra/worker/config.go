package worker

import (
	"fmt"
	"log/slog"
	"time"

	"publish-notifier/internal/pkg/config"
	"publish-notifier/internal/usecase/notify"
)

// Config controls the news sync worker.
type Config struct {
	// Schedule is a 5-field cron expression. Default: "*/15 * * * *"
	Schedule string
	// Timezone is the IANA zone the schedule is evaluated in. Default: "Asia/Tokyo"
	Timezone string
	// SyncTimeout bounds one run, including every batch it sends. Default: 5m
	SyncTimeout time.Duration
	// BatchLimit caps how many news items one NotifyNews call covers. Default: 50
	BatchLimit int
	// Lookback sets the first cursor after a restart to now-Lookback. Default: 1h
	Lookback time.Duration
	// HealthPort serves /health, /health/ready and /metrics. Default: 9091
	HealthPort int
	// RunOnStart runs one sync before the first scheduled tick. Default: false
	RunOnStart bool
}

// DefaultConfig returns the worker defaults.
func DefaultConfig() Config {
	return Config{
		Schedule:    "*/15 * * * *",
		Timezone:    "Asia/Tokyo",
		SyncTimeout: 5 * time.Minute,
		BatchLimit:  50,
		Lookback:    time.Hour,
		HealthPort:  9091,
	}
}

// Location returns the scheduler time zone. Validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if err := config.ValidateCronSchedule(c.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.SyncTimeout, 10*time.Second, time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("sync timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.BatchLimit, 1, notify.MaxNewsIDs); err != nil {
		errs = append(errs, fmt.Errorf("batch limit: %w", err))
	}
	if err := config.ValidateDuration(c.Lookback, 0, 7*24*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("lookback: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv reads the worker settings. Invalid values fall back to
// their default with a warning and a fallback metric; it never fails.
func LoadConfigFromEnv(logger *slog.Logger, metrics *config.Metrics) Config {
	cfg := DefaultConfig()
	fallback := false

	note := func(field, warning string) {
		fallback = true
		metrics.RecordFallback(field)
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}

	if r := config.LoadString("NEWS_SYNC_SCHEDULE", cfg.Schedule, config.ValidateCronSchedule); r.FallbackApplied {
		note("schedule", r.Warning)
	} else {
		cfg.Schedule = r.Value
	}
	if r := config.LoadString("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone); r.FallbackApplied {
		note("timezone", r.Warning)
	} else {
		cfg.Timezone = r.Value
	}
	if r := config.LoadDuration("NEWS_SYNC_TIMEOUT", cfg.SyncTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, time.Hour)
	}); r.FallbackApplied {
		note("sync_timeout", r.Warning)
	} else {
		cfg.SyncTimeout = r.Value
	}
	if r := config.LoadInt("NEWS_SYNC_BATCH_LIMIT", cfg.BatchLimit, func(v int) error {
		return config.ValidateIntRange(v, 1, notify.MaxNewsIDs)
	}); r.FallbackApplied {
		note("batch_limit", r.Warning)
	} else {
		cfg.BatchLimit = r.Value
	}
	if r := config.LoadDuration("NEWS_SYNC_LOOKBACK", cfg.Lookback, func(d time.Duration) error {
		return config.ValidateDuration(d, 0, 7*24*time.Hour)
	}); r.FallbackApplied {
		note("lookback", r.Warning)
	} else {
		cfg.Lookback = r.Value
	}
	if r := config.LoadInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	}); r.FallbackApplied {
		note("health_port", r.Warning)
	} else {
		cfg.HealthPort = r.Value
	}
	if r := config.LoadBool("NEWS_SYNC_RUN_ON_START", cfg.RunOnStart); r.FallbackApplied {
		note("run_on_start", r.Warning)
	} else {
		cfg.RunOnStart = r.Value
	}

	metrics.RecordLoad(fallback)
	return cfg
}
