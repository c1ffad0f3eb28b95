package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

const (
	slackWebhookHost       = "hooks.slack.com"
	slackWebhookPathPrefix = "/services/"
)

// ValidateWebhookURL checks that rawURL is a Slack incoming webhook.
// Only https://hooks.slack.com/services/... is accepted, which also rules out SSRF targets.
func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "webhook_url", Message: "webhook URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "webhook_url",
			Message: fmt.Sprintf("webhook URL must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "webhook_url", Message: "webhook URL is malformed"}
	}

	if parsedURL.Scheme != "https" {
		return &ValidationError{Field: "webhook_url", Message: "webhook URL must use https"}
	}

	if parsedURL.Host != slackWebhookHost {
		return &ValidationError{
			Field:   "webhook_url",
			Message: fmt.Sprintf("webhook URL host must be %s", slackWebhookHost),
		}
	}

	// /services/T.../B.../secret
	if !strings.HasPrefix(parsedURL.Path, slackWebhookPathPrefix) ||
		len(strings.Trim(strings.TrimPrefix(parsedURL.Path, slackWebhookPathPrefix), "/")) == 0 {
		return &ValidationError{
			Field:   "webhook_url",
			Message: "webhook URL path must start with /services/",
		}
	}

	return nil
}
