package entity

import (
	"strings"
	"time"
)

// Destination is a Slack incoming webhook bound to one content category.
// Destinations are never deleted; Enabled is a soft switch.
type Destination struct {
	ID         string
	Category   Category
	WebhookURL string
	Channel    string
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// maxChannelLength mirrors Slack's channel name limit plus the leading '#'.
const maxChannelLength = 81

// Validate checks the fields an operator is allowed to set.
func (d *Destination) Validate() error {
	if !d.Category.Valid() {
		return &ValidationError{Field: "category", Message: "unknown category"}
	}
	channel := strings.TrimSpace(d.Channel)
	if channel == "" {
		return &ValidationError{Field: "channel", Message: "channel is required"}
	}
	if len(channel) > maxChannelLength {
		return &ValidationError{Field: "channel", Message: "channel name is too long"}
	}
	d.Channel = channel
	return ValidateWebhookURL(d.WebhookURL)
}

// MaskedWebhookURL hides the secret path segments of the webhook URL.
func (d *Destination) MaskedWebhookURL() string {
	return MaskWebhookURL(d.WebhookURL)
}

// MaskWebhookURL keeps the scheme, host and the first path segment after /services/.
//
//	https://hooks.slack.com/services/T000/B000/XXXX -> https://hooks.slack.com/services/T000/***
func MaskWebhookURL(raw string) string {
	const marker = "/services/"
	i := strings.Index(raw, marker)
	if i < 0 {
		return "***"
	}
	rest := raw[i+len(marker):]
	if j := strings.Index(rest, "/"); j >= 0 {
		return raw[:i+len(marker)] + rest[:j] + "/***"
	}
	return raw[:i+len(marker)] + "***"
}
