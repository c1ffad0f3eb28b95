package repository

import (
	"context"

	"publish-notifier/internal/domain/entity"
)

// ContentRepository reads published records owned by the content stores.
type ContentRepository interface {
	// Get returns (nil, nil) when no record exists for the category and id.
	Get(ctx context.Context, category entity.Category, id string) (*entity.Content, error)
	// GetNewsItems returns the news items matching ids; unknown ids are ignored.
	GetNewsItems(ctx context.Context, ids []string) ([]*entity.NewsItem, error)
	// ListNewsAfter returns up to limit news items positioned strictly after
	// after in (published_at, id) order, oldest first.
	ListNewsAfter(ctx context.Context, after entity.NewsPosition, limit int) ([]*entity.NewsItem, error)
}
