package destination

import (
	"time"

	"publish-notifier/internal/domain/entity"
)

// DTO is the wire form of a destination. The webhook URL is always masked.
type DTO struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Channel    string    `json:"channel"`
	WebhookURL string    `json:"webhook_url"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toDTO(d *entity.Destination) DTO {
	return DTO{
		ID:         d.ID,
		Category:   string(d.Category),
		Channel:    d.Channel,
		WebhookURL: d.MaskedWebhookURL(),
		Enabled:    d.Enabled,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type createRequest struct {
	Category   string `json:"category"`
	Channel    string `json:"channel"`
	WebhookURL string `json:"webhook_url"`
	Enabled    *bool  `json:"enabled"`
}

type updateRequest struct {
	Channel    string `json:"channel"`
	WebhookURL string `json:"webhook_url"`
	Enabled    *bool  `json:"enabled"`
}
