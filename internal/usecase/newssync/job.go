// Package newssync announces newly published news items in Slack digests.
//
// Each run reads items positioned after a stored (published_at, id) cursor,
// hands them to the notification service in batches and advances the cursor
// past every batch that was attempted. Batches cut short by a timeout, a full send queue or a
// failed lookup leave the cursor in place so the next run retries them.
package newssync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/repository"
	"publish-notifier/internal/usecase/notify"
)

// NewsNotifier is implemented by *notify.Service.
type NewsNotifier interface {
	NotifyNews(ctx context.Context, ids []string) notify.BatchResponse
}

// Cursor persists the position of the newest item already handed off.
type Cursor interface {
	Load(ctx context.Context) (entity.NewsPosition, error)
	Store(ctx context.Context, pos entity.NewsPosition) error
}

// Job is one configured sync.
type Job struct {
	Content  repository.ContentRepository
	Notifier NewsNotifier
	Cursor   Cursor

	// BatchLimit caps the ids per NotifyNews call, at most notify.MaxNewsIDs.
	BatchLimit int
	// Lookback positions a missing cursor at now-Lookback.
	Lookback time.Duration

	Now func() time.Time
}

// Result summarises a run.
type Result struct {
	Batches  int
	Items    int
	Messages int
	Cursor   entity.NewsPosition
}

// ErrBatchInterrupted marks a batch the notifier stopped early; the cursor
// was not moved past it.
var ErrBatchInterrupted = errors.New("news batch interrupted")

// Run syncs until no newer items remain, ctx is done, or a batch is interrupted.
// Delivery failures inside a batch are reported in the returned error but do
// not stop the run.
func (j *Job) Run(ctx context.Context) (Result, error) {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	limit := j.BatchLimit
	if limit <= 0 || limit > notify.MaxNewsIDs {
		limit = notify.MaxNewsIDs
	}

	since, err := j.Cursor.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	if since.IsZero() {
		since = entity.NewsPosition{PublishedAt: now().Add(-j.Lookback)}
	}
	res := Result{Cursor: since}

	var failures []error
	for {
		if err := ctx.Err(); err != nil {
			return res, errors.Join(append(failures, err)...)
		}

		items, err := j.Content.ListNewsAfter(ctx, res.Cursor, limit)
		if err != nil {
			return res, errors.Join(append(failures, fmt.Errorf("list news: %w", err))...)
		}
		if len(items) == 0 {
			break
		}

		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		resp := j.Notifier.NotifyNews(ctx, ids)
		res.Batches++
		res.Items += len(items)
		res.Messages += resp.MessagesSent

		switch resp.Reason {
		case notify.ReasonTimeout, notify.ReasonRateLimited, notify.ReasonLookup:
			return res, errors.Join(append(failures,
				fmt.Errorf("%w: %s: %s", ErrBatchInterrupted, resp.Reason, resp.Error))...)
		case notify.ReasonNone, notify.ReasonNotFound:
		default:
			failures = append(failures, fmt.Errorf("news batch %s: %s", resp.Reason, resp.Error))
		}

		last := entity.PositionOf(items[len(items)-1])
		advanced := last.After(res.Cursor)
		if advanced {
			if err := j.Cursor.Store(ctx, last); err != nil {
				return res, errors.Join(append(failures, err)...)
			}
			res.Cursor = last
		}

		slog.Info("news batch handed off",
			slog.Int("items", len(items)),
			slog.Int("messages_sent", resp.MessagesSent),
			slog.String("status", resp.Status),
			slog.Time("cursor", res.Cursor.PublishedAt),
			slog.String("cursor_id", res.Cursor.ID))

		// a store that ignores the keyset would return the same page forever
		if len(items) < limit || !advanced {
			break
		}
	}
	return res, errors.Join(failures...)
}
