package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SITE_BASE_URL", "https://site.example/")
	t.Setenv("SERVICE_ROLE_KEY", "service-key")
	t.Setenv("JWT_SECRET", testSecret)
}

func TestLoadNotifyConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadNotifyConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://site.example", cfg.SiteBaseURL, "trailing slash is trimmed")
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, time.Second, cfg.Spacing)
	assert.Equal(t, 100, cfg.QueueCapacity)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Backoff)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.DestinationsFile)
	assert.Equal(t, 2*time.Second, cfg.MaxBackoff())
}

func TestLoadNotifyConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTIFY_TIMEOUT", "30s")
	t.Setenv("NOTIFY_SPACING", "500ms")
	t.Setenv("NOTIFY_QUEUE_CAPACITY", "10")
	t.Setenv("NOTIFY_MAX_ATTEMPTS", "5")
	t.Setenv("NOTIFY_BACKOFF", "200ms")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DESTINATIONS_FILE", "/etc/notifier/destinations.yaml")

	cfg, err := LoadNotifyConfig()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Spacing)
	assert.Equal(t, 10, cfg.QueueCapacity)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 1600*time.Millisecond, cfg.MaxBackoff())
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "/etc/notifier/destinations.yaml", cfg.DestinationsFile)
}

func TestNotifyConfig_Validate(t *testing.T) {
	valid := func() NotifyConfig {
		return NotifyConfig{
			SiteBaseURL:    "https://site.example",
			ServiceRoleKey: "key",
			JWTSecret:      testSecret,
			Timeout:        10 * time.Second,
			Spacing:        time.Second,
			QueueCapacity:  100,
			MaxAttempts:    3,
			Backoff:        time.Second,
			HTTPTimeout:    5 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *NotifyConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(c *NotifyConfig) {}},
		{name: "missing site url", mutate: func(c *NotifyConfig) { c.SiteBaseURL = "" }, wantErr: "SITE_BASE_URL is required"},
		{name: "relative site url", mutate: func(c *NotifyConfig) { c.SiteBaseURL = "/relative" }, wantErr: "absolute http(s) URL"},
		{name: "missing service key", mutate: func(c *NotifyConfig) { c.ServiceRoleKey = "" }, wantErr: "SERVICE_ROLE_KEY"},
		{name: "short jwt secret", mutate: func(c *NotifyConfig) { c.JWTSecret = "short" }, wantErr: "JWT_SECRET"},
		{name: "zero timeout", mutate: func(c *NotifyConfig) { c.Timeout = 0 }, wantErr: "NOTIFY_TIMEOUT"},
		{name: "tiny spacing", mutate: func(c *NotifyConfig) { c.Spacing = time.Millisecond }, wantErr: "NOTIFY_SPACING"},
		{name: "zero capacity", mutate: func(c *NotifyConfig) { c.QueueCapacity = 0 }, wantErr: "NOTIFY_QUEUE_CAPACITY"},
		{name: "too many attempts", mutate: func(c *NotifyConfig) { c.MaxAttempts = 11 }, wantErr: "NOTIFY_MAX_ATTEMPTS"},
		{name: "negative backoff", mutate: func(c *NotifyConfig) { c.Backoff = -time.Second }, wantErr: "NOTIFY_BACKOFF"},
		{name: "zero http timeout", mutate: func(c *NotifyConfig) { c.HTTPTimeout = 0 }, wantErr: "NOTIFY_HTTP_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadNotifyConfig_ReportsAllProblems(t *testing.T) {
	t.Setenv("SITE_BASE_URL", "")
	t.Setenv("SERVICE_ROLE_KEY", "")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadNotifyConfig()

	require.Error(t, err)
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "invalid notify configuration"))
	assert.Contains(t, msg, "SITE_BASE_URL")
	assert.Contains(t, msg, "SERVICE_ROLE_KEY")
	assert.Contains(t, msg, "JWT_SECRET")
}
