package repository

import (
	"context"

	"publish-notifier/internal/domain/entity"
)

// DestinationRepository stores Slack webhook destinations.
// There is deliberately no Delete: destinations are only ever disabled.
type DestinationRepository interface {
	// FindEnabledByCategory returns the enabled destination for the category.
	// When several channels are enabled, the most recently updated one is returned.
	// Returns (nil, nil) when no enabled destination exists.
	FindEnabledByCategory(ctx context.Context, category entity.Category) (*entity.Destination, error)
	List(ctx context.Context) ([]*entity.Destination, error)
	// Get returns (nil, nil) when the id is unknown.
	Get(ctx context.Context, id string) (*entity.Destination, error)
	// Create assigns ID and timestamps. Returns entity.ErrDuplicate when another
	// enabled destination already uses the same (category, channel).
	Create(ctx context.Context, d *entity.Destination) error
	// Update persists WebhookURL, Channel and Enabled only.
	Update(ctx context.Context, d *entity.Destination) error
}
