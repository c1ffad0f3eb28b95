package repository

import (
	"context"

	"publish-notifier/internal/domain/entity"
)

// DeliveryLogRepository is the append-only delivery accounting store.
type DeliveryLogRepository interface {
	Append(ctx context.Context, log *entity.DeliveryLog) error
}
