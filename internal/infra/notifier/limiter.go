package notifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultSpacing is Slack's incoming webhook limit: one message per second.
	DefaultSpacing = time.Second

	// DefaultQueueCapacity is the number of messages that may wait per destination.
	DefaultQueueCapacity = 100

	defaultStoreTimeout = 500 * time.Millisecond
)

// Gate is the admission check every webhook POST passes through.
type Gate interface {
	Acquire(ctx context.Context, destinationURL string) error
}

// LimiterConfig configures a Limiter.
type LimiterConfig struct {
	// Spacing is the minimum gap between two sends to the same destination.
	Spacing time.Duration

	// Capacity is the maximum number of waiting messages per destination.
	Capacity int

	// Store shares the send timeline with other processes. Optional.
	Store SlotStore

	// StoreTimeout bounds each Store round trip.
	StoreTimeout time.Duration
}

// Limiter spaces sends per destination URL and keeps waiting senders in
// strict arrival order. Each destination gets its own lane; a lane with
// waiting senders is drained by a dedicated dispatcher goroutine.
//
// A Limiter is an owned registry: construct one with NewLimiter, share it
// between every sender that may target the same destinations, and Close it
// on shutdown.
type Limiter struct {
	cfg LimiterConfig

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

type lane struct {
	key     string
	queue   []*ticket
	limiter *rate.Limiter
	running bool
}

type ticket struct {
	ready     chan error
	grantedAt time.Time
}

// LimiterStats is a point-in-time view used by health checks.
type LimiterStats struct {
	Destinations int `json:"destinations"`
	Queued       int `json:"queued"`
}

// NewLimiter creates a Limiter, applying defaults to zero fields.
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.Spacing <= 0 {
		cfg.Spacing = DefaultSpacing
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultQueueCapacity
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	return &Limiter{
		cfg:   cfg,
		lanes: make(map[string]*lane),
		done:  make(chan struct{}),
	}
}

// Acquire blocks until the caller may send to destinationURL.
//
// It returns immediately when the destination has nobody waiting and its
// spacing window is open. Otherwise the caller joins the destination's FIFO
// queue. A full queue is rejected with ErrQueueFull without blocking.
// Cancelling ctx withdraws the caller from the queue.
func (l *Limiter) Acquire(ctx context.Context, destinationURL string) error {
	_, err := l.acquire(ctx, destinationURL)
	return err
}

// acquire is Acquire returning the dispatch time.
func (l *Limiter) acquire(ctx context.Context, destinationURL string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return time.Time{}, ErrLimiterClosed
	}
	ln := l.laneFor(destinationURL)

	if len(ln.queue) == 0 && l.cfg.Store == nil {
		now := time.Now()
		if ln.tryTake(now) {
			l.mu.Unlock()
			limiterWaitSeconds.Observe(0)
			return now, nil
		}
	}

	if len(ln.queue) >= l.cfg.Capacity {
		l.mu.Unlock()
		limiterRejectionsTotal.Inc()
		slog.Warn("rate limiter queue full",
			slog.String("destination", ln.key),
			slog.Int("capacity", l.cfg.Capacity))
		return time.Time{}, ErrQueueFull
	}

	t := &ticket{ready: make(chan error, 1)}
	ln.queue = append(ln.queue, t)
	limiterQueueDepth.Inc()
	if !ln.running {
		ln.running = true
		l.wg.Add(1)
		go l.dispatch(ln)
	}
	l.mu.Unlock()

	start := time.Now()
	select {
	case err := <-t.ready:
		limiterWaitSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			return time.Time{}, err
		}
		return t.grantedAt, nil
	case <-ctx.Done():
		l.mu.Lock()
		if ln.remove(t) {
			limiterQueueDepth.Dec()
		}
		l.mu.Unlock()
		return time.Time{}, ctx.Err()
	}
}

// dispatch releases the head of the lane each time the spacing window opens,
// and exits once the lane is empty.
func (l *Limiter) dispatch(ln *lane) {
	defer l.wg.Done()

	for {
		l.mu.Lock()
		if len(ln.queue) == 0 || l.closed {
			ln.running = false
			l.mu.Unlock()
			return
		}

		now := time.Now()
		if !ln.tryTake(now) {
			wait := ln.nextWindow(now)
			l.mu.Unlock()
			if !l.sleep(wait) {
				return
			}
			continue
		}
		if l.cfg.Store == nil {
			ln.grantHead(now)
			l.mu.Unlock()
			continue
		}
		l.mu.Unlock()

		if !l.sleep(l.reserveShared(ln)) {
			return
		}

		l.mu.Lock()
		if len(ln.queue) > 0 {
			ln.grantHead(time.Now())
		}
		l.mu.Unlock()
	}
}

// reserveShared books the next send slot in the shared store and returns how
// long to wait for it. Store failures fall back to local spacing only.
func (l *Limiter) reserveShared(ln *lane) time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.StoreTimeout)
	defer cancel()

	wait, err := l.cfg.Store.Reserve(ctx, ln.key, l.cfg.Spacing)
	if err != nil {
		limiterStoreErrorsTotal.Inc()
		slog.Warn("shared slot store unavailable, using local spacing",
			slog.String("destination", ln.key),
			slog.Any("error", err))
		return 0
	}
	return wait
}

func (l *Limiter) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-l.done:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-l.done:
		return false
	}
}

// Close stops all dispatchers and fails every waiting sender with ErrLimiterClosed.
func (l *Limiter) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.done)
	for _, ln := range l.lanes {
		for _, t := range ln.queue {
			t.ready <- ErrLimiterClosed
			limiterQueueDepth.Dec()
		}
		ln.queue = nil
	}
	l.mu.Unlock()

	l.wg.Wait()
}

// Stats reports the number of known destinations and waiting senders.
func (l *Limiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := LimiterStats{Destinations: len(l.lanes)}
	for _, ln := range l.lanes {
		s.Queued += len(ln.queue)
	}
	return s
}

// laneFor must be called with l.mu held.
func (l *Limiter) laneFor(destinationURL string) *lane {
	if ln, ok := l.lanes[destinationURL]; ok {
		return ln
	}
	ln := &lane{
		key:     DestinationKey(destinationURL),
		limiter: rate.NewLimiter(rate.Every(l.cfg.Spacing), 1),
	}
	l.lanes[destinationURL] = ln
	return ln
}

// tryTake consumes the spacing token if the window is open at now.
func (ln *lane) tryTake(now time.Time) bool {
	return ln.limiter.AllowN(now, 1)
}

// nextWindow returns the time until the spacing window reopens.
func (ln *lane) nextWindow(now time.Time) time.Duration {
	missing := 1 - ln.limiter.TokensAt(now)
	if missing <= 0 {
		return 0
	}
	d := time.Duration(missing / float64(ln.limiter.Limit()) * float64(time.Second))
	return max(d, time.Millisecond)
}

func (ln *lane) grantHead(at time.Time) {
	t := ln.queue[0]
	ln.queue[0] = nil
	ln.queue = ln.queue[1:]
	t.grantedAt = at
	t.ready <- nil
	limiterQueueDepth.Dec()
}

func (ln *lane) remove(t *ticket) bool {
	for i, q := range ln.queue {
		if q == t {
			ln.queue = append(ln.queue[:i], ln.queue[i+1:]...)
			return true
		}
	}
	return false
}

// DestinationKey derives a stable identifier for a webhook URL that does not
// reveal the URL's secret path.
func DestinationKey(destinationURL string) string {
	sum := sha256.Sum256([]byte(destinationURL))
	return hex.EncodeToString(sum[:])[:16]
}
