package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlotStore books send slots on a timeline shared by every process that
// delivers to the same destination.
type SlotStore interface {
	// Reserve books the next free slot for key, at least spacing after the
	// previously booked one, and returns how long the caller must wait for it.
	Reserve(ctx context.Context, key string, spacing time.Duration) (time.Duration, error)
}

// reserveSlotScript atomically moves the destination's last slot forward.
//
//	KEYS[1] slot key
//	ARGV[1] caller clock in ms
//	ARGV[2] spacing in ms
//	ARGV[3] key TTL in ms
var reserveSlotScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local spacing = tonumber(ARGV[2])
local last = tonumber(redis.call('GET', KEYS[1]) or '0')
local slot = now
if last + spacing > now then
  slot = last + spacing
end
redis.call('SET', KEYS[1], slot, 'PX', ARGV[3])
return slot - now
`)

// RedisSlotStore keeps the last booked send time per destination in Redis.
type RedisSlotStore struct {
	client   redis.UniversalClient
	prefix   string
	capacity int
	now      func() time.Time
}

// NewRedisSlotStore creates a RedisSlotStore for limiters whose queues hold
// capacity messages per destination. capacity <= 0 means DefaultQueueCapacity.
func NewRedisSlotStore(client redis.UniversalClient, capacity int) *RedisSlotStore {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &RedisSlotStore{
		client:   client,
		prefix:   "notify:slot:",
		capacity: capacity,
		now:      time.Now,
	}
}

// Reserve implements SlotStore.
func (s *RedisSlotStore) Reserve(ctx context.Context, key string, spacing time.Duration) (time.Duration, error) {
	spacingMs := spacing.Milliseconds()
	if spacingMs <= 0 {
		return 0, nil
	}
	// keep the key long enough to outlive a full queue draining
	ttlMs := spacingMs * int64(s.capacity+1)

	waitMs, err := reserveSlotScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		s.now().UnixMilli(), spacingMs, ttlMs,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("reserve slot: %w", err)
	}
	if waitMs < 0 {
		waitMs = 0
	}
	return time.Duration(waitMs) * time.Millisecond, nil
}

// Ping reports whether Redis is reachable.
func (s *RedisSlotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
