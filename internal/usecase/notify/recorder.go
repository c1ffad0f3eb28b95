package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/infra/notifier"
	"publish-notifier/internal/observability/logging"
	"publish-notifier/internal/repository"
	"publish-notifier/internal/resilience/retry"
)

const defaultLogWriteTimeout = 5 * time.Second

// Recorder appends delivery accounting rows. It never fails the caller:
// write errors go to the log and the notify_log_write_failures_total counter.
type Recorder struct {
	repo    repository.DeliveryLogRepository
	timeout time.Duration
	retry   retry.Config
	now     func() time.Time
}

// NewRecorder creates a Recorder backed by repo.
func NewRecorder(repo repository.DeliveryLogRepository) *Recorder {
	return &Recorder{
		repo:    repo,
		timeout: defaultLogWriteTimeout,
		retry:   retry.DBConfig(),
		now:     time.Now,
	}
}

// Record writes one row. The write outlives ctx's deadline so an expired
// notification is still accounted for.
func (r *Recorder) Record(ctx context.Context, log entity.DeliveryLog) {
	if log.DeliveredAt.IsZero() {
		log.DeliveredAt = r.now()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	err := retry.WithBackoff(writeCtx, r.retry, func() error {
		return r.repo.Append(writeCtx, &log)
	})
	if err != nil {
		logWriteFailuresTotal.Inc()
		logging.WithRequestID(ctx, slog.Default()).Error("failed to write delivery log",
			slog.String("category", string(log.Category)),
			slog.String("content_id", log.ContentID),
			slog.String("status", string(log.Status)),
			slog.Int("attempt", log.Attempt),
			slog.Any("error", err))
	}
}

// RecordSkip writes the row for a category without an enabled destination.
func (r *Recorder) RecordSkip(ctx context.Context, category entity.Category, contentID string) {
	r.Record(ctx, entity.NewSkippedLog(category, contentID, r.now()))
}

// RecordDelivery writes one row per attempt of delivery.
// timeoutMessage replaces the error text of attempts cut off by the deadline.
func (r *Recorder) RecordDelivery(ctx context.Context, dest *entity.Destination, category entity.Category, contentID string, delivery notifier.Delivery, timeoutMessage string) {
	for _, a := range delivery.Attempts {
		r.Record(ctx, attemptLog(dest, category, contentID, delivery.PayloadSize, a, timeoutMessage))
	}
}

func attemptLog(dest *entity.Destination, category entity.Category, contentID string, payloadSize int, a notifier.Attempt, timeoutMessage string) entity.DeliveryLog {
	destID := dest.ID
	log := entity.DeliveryLog{
		DestinationID: &destID,
		Category:      category,
		ContentID:     contentID,
		Status:        entity.DeliveryStatusSuccess,
		Attempt:       a.Number,
		PayloadSize:   payloadSize,
	}
	if a.StatusCode > 0 {
		code := a.StatusCode
		log.StatusCode = &code
	}
	if a.Err != nil {
		log.Status = entity.DeliveryStatusFailed
		msg := a.Err.Error()
		if errors.Is(a.Err, context.DeadlineExceeded) && timeoutMessage != "" {
			msg = timeoutMessage
		}
		log.ErrorMessage = &msg
	}
	return log
}
