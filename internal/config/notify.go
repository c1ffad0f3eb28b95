// Package config loads the service configuration from the environment and
// from the optional destination seed file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "publish-notifier/pkg/config"
)

// NotifyConfig holds the notification pipeline settings.
type NotifyConfig struct {
	// SiteBaseURL prefixes every public link in messages. Required.
	SiteBaseURL string

	// ServiceRoleKey authenticates trusted internal callers. Required.
	ServiceRoleKey string

	// JWTSecret verifies session tokens. Required, at least 32 bytes.
	JWTSecret string

	// Timeout bounds a whole notification. Default: 10s
	Timeout time.Duration

	// Spacing is the minimum gap between sends to one webhook. Default: 1s
	Spacing time.Duration

	// QueueCapacity is the per-webhook waiting queue size. Default: 100
	QueueCapacity int

	// MaxAttempts is the number of POST attempts per message. Default: 3
	MaxAttempts int

	// Backoff is the wait after the first failed attempt; it doubles after each
	// further failure. Default: 1s
	Backoff time.Duration

	// HTTPTimeout bounds a single POST. Default: 5s
	HTTPTimeout time.Duration

	// RedisURL enables the shared send timeline when set.
	RedisURL string

	// DestinationsFile is an optional YAML seed of destinations.
	DestinationsFile string
}

const minJWTSecretLength = 32

// LoadNotifyConfig reads NotifyConfig from the environment and validates it.
func LoadNotifyConfig() (*NotifyConfig, error) {
	cfg := &NotifyConfig{
		SiteBaseURL:      strings.TrimRight(pkgconfig.GetEnvString("SITE_BASE_URL", ""), "/"),
		ServiceRoleKey:   pkgconfig.GetEnvString("SERVICE_ROLE_KEY", ""),
		JWTSecret:        pkgconfig.GetEnvString("JWT_SECRET", ""),
		Timeout:          pkgconfig.GetEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
		Spacing:          pkgconfig.GetEnvDuration("NOTIFY_SPACING", time.Second),
		QueueCapacity:    pkgconfig.GetEnvInt("NOTIFY_QUEUE_CAPACITY", 100),
		MaxAttempts:      pkgconfig.GetEnvInt("NOTIFY_MAX_ATTEMPTS", 3),
		Backoff:          pkgconfig.GetEnvDuration("NOTIFY_BACKOFF", time.Second),
		HTTPTimeout:      pkgconfig.GetEnvDuration("NOTIFY_HTTP_TIMEOUT", 5*time.Second),
		RedisURL:         pkgconfig.GetEnvString("REDIS_URL", ""),
		DestinationsFile: pkgconfig.GetEnvString("DESTINATIONS_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notify configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration correctness.
func (c *NotifyConfig) Validate() error {
	var errs []error

	if c.SiteBaseURL == "" {
		errs = append(errs, errors.New("SITE_BASE_URL is required"))
	} else if u, err := url.Parse(c.SiteBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, errors.New("SITE_BASE_URL must be an absolute http(s) URL"))
	}

	if c.ServiceRoleKey == "" {
		errs = append(errs, errors.New("SERVICE_ROLE_KEY is required"))
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}

	if err := pkgconfig.ValidatePositiveDuration(c.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_TIMEOUT: %w", err))
	}
	if err := pkgconfig.ValidateDurationRange(c.Spacing, 100*time.Millisecond, time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_SPACING: %w", err))
	}
	if c.QueueCapacity < 1 || c.QueueCapacity > 10000 {
		errs = append(errs, errors.New("NOTIFY_QUEUE_CAPACITY must be between 1 and 10000"))
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > 10 {
		errs = append(errs, errors.New("NOTIFY_MAX_ATTEMPTS must be between 1 and 10"))
	}
	if err := pkgconfig.ValidateNonNegativeDuration(c.Backoff); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_BACKOFF: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.HTTPTimeout); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_HTTP_TIMEOUT: %w", err))
	}

	return errors.Join(errs...)
}

// MaxBackoff is the wait before the final attempt.
func (c *NotifyConfig) MaxBackoff() time.Duration {
	d := c.Backoff
	for i := 2; i < c.MaxAttempts; i++ {
		d *= 2
	}
	return d
}
