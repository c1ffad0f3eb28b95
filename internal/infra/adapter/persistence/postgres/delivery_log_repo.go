package postgres

import (
	"context"
	"fmt"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/repository"
	"publish-notifier/internal/resilience/circuitbreaker"
)

type DeliveryLogRepo struct{ db circuitbreaker.DB }

func NewDeliveryLogRepo(db circuitbreaker.DB) repository.DeliveryLogRepository {
	return &DeliveryLogRepo{db: db}
}

func (repo *DeliveryLogRepo) Append(ctx context.Context, log *entity.DeliveryLog) error {
	const query = `
INSERT INTO slack_notification_logs
       (destination_id, category, content_id, status, status_code,
        error_message, attempt, payload_size, delivered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		log.DestinationID, log.Category, log.ContentID, log.Status, log.StatusCode,
		log.ErrorMessage, log.Attempt, log.PayloadSize, log.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}
