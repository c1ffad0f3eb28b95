package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"publish-notifier/internal/domain/entity"
)

// MemoryCursor keeps the sync position for the life of the process.
type MemoryCursor struct {
	mu  sync.Mutex
	pos entity.NewsPosition
}

// Load returns the zero position until Store is called.
func (c *MemoryCursor) Load(context.Context) (entity.NewsPosition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos, nil
}

// Store records pos.
func (c *MemoryCursor) Store(_ context.Context, pos entity.NewsPosition) error {
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
	return nil
}

// RedisCursor keeps the sync position in a Redis hash so a restarted worker
// resumes where the previous one stopped.
//
//	published_at  unix nanoseconds
//	id            news item id
type RedisCursor struct {
	client redis.UniversalClient
	key    string
}

// NewRedisCursor stores the cursor under key.
func NewRedisCursor(client redis.UniversalClient, key string) *RedisCursor {
	return &RedisCursor{client: client, key: key}
}

// Load returns the zero position when no cursor has been stored.
func (c *RedisCursor) Load(ctx context.Context) (entity.NewsPosition, error) {
	fields, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return entity.NewsPosition{}, fmt.Errorf("load cursor: %w", err)
	}
	raw, ok := fields["published_at"]
	if !ok {
		return entity.NewsPosition{}, nil
	}
	ns, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return entity.NewsPosition{}, fmt.Errorf("parse cursor %q: %w", raw, err)
	}
	return entity.NewsPosition{PublishedAt: time.Unix(0, ns).UTC(), ID: fields["id"]}, nil
}

// Store records pos with nanosecond precision. Both fields change in one write.
func (c *RedisCursor) Store(ctx context.Context, pos entity.NewsPosition) error {
	err := c.client.HSet(ctx, c.key,
		"published_at", strconv.FormatInt(pos.PublishedAt.UnixNano(), 10),
		"id", pos.ID,
	).Err()
	if err != nil {
		return fmt.Errorf("store cursor: %w", err)
	}
	return nil
}
