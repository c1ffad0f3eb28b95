package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"publish-notifier/internal/resilience/retry"
)

// fastRetry keeps the webhook policy shape with short waits.
func fastRetry() retry.Config {
	cfg := retry.WebhookConfig()
	cfg.InitialDelay = 20 * time.Millisecond
	cfg.MaxDelay = 40 * time.Millisecond
	return cfg
}

type openGate struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *openGate) Acquire(ctx context.Context, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.err
}

func (g *openGate) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func testMessage() Message {
	return Message{
		Text:   "Workflow: Deploy",
		Blocks: []Block{sectionBlock("*hello*")},
	}
}

func TestDeliverer_SuccessFirstAttempt(t *testing.T) {
	// Arrange
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	gate := &openGate{}
	d := NewDeliverer(DelivererConfig{Retry: fastRetry(), HTTPClient: srv.Client()}, gate)
	msg := testMessage()

	// Act
	delivery, err := d.Deliver(context.Background(), srv.URL, msg)

	// Assert
	require.NoError(t, err)
	assert.True(t, delivery.Succeeded())
	require.Len(t, delivery.Attempts, 1)
	assert.Equal(t, http.StatusOK, delivery.Attempts[0].StatusCode)
	assert.Equal(t, 1, gate.Calls())
	assert.Equal(t, "application/json", gotContentType)

	want, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(gotBody))
	assert.Equal(t, len(want), delivery.PayloadSize)
	size, err := msg.PayloadSize()
	require.NoError(t, err)
	assert.Equal(t, size, delivery.PayloadSize)
}

func TestDeliverer_RetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	var arrivals []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal_error"))
	}))
	defer srv.Close()

	gate := &openGate{}
	d := NewDeliverer(DelivererConfig{Retry: fastRetry(), HTTPClient: srv.Client()}, gate)

	delivery, err := d.Deliver(context.Background(), srv.URL, testMessage())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempt(s)")
	var whErr *WebhookError
	require.ErrorAs(t, err, &whErr)
	assert.Equal(t, http.StatusInternalServerError, whErr.StatusCode)
	assert.False(t, delivery.Succeeded())
	require.Len(t, delivery.Attempts, 3)
	for i, a := range delivery.Attempts {
		assert.Equal(t, i+1, a.Number)
		assert.Equal(t, http.StatusInternalServerError, a.StatusCode)
		assert.Error(t, a.Err)
	}
	assert.Equal(t, 3, gate.Calls())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, arrivals, 3)
	assert.GreaterOrEqual(t, arrivals[1].Sub(arrivals[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, arrivals[2].Sub(arrivals[1]), 40*time.Millisecond)
}

func TestDeliverer_RetriesClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid_payload"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDeliverer(DelivererConfig{Retry: fastRetry(), HTTPClient: srv.Client()}, &openGate{})

	delivery, err := d.Deliver(context.Background(), srv.URL, testMessage())

	require.NoError(t, err)
	require.Len(t, delivery.Attempts, 2)
	assert.Equal(t, http.StatusBadRequest, delivery.Attempts[0].StatusCode)
	assert.Contains(t, delivery.Attempts[0].Err.Error(), "invalid_payload")
	assert.Equal(t, http.StatusOK, delivery.Attempts[1].StatusCode)
}

func TestDeliverer_HonoursRetryAfter(t *testing.T) {
	var mu sync.Mutex
	var arrivals []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		first := len(arrivals) == 1
		mu.Unlock()
		if first {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"error":"rate_limited","retry_after":0.15}`))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDeliverer(DelivererConfig{Retry: fastRetry(), HTTPClient: srv.Client()}, &openGate{})

	delivery, err := d.Deliver(context.Background(), srv.URL, testMessage())

	require.NoError(t, err)
	require.Len(t, delivery.Attempts, 2)
	assert.Equal(t, http.StatusTooManyRequests, delivery.Attempts[0].StatusCode)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, arrivals[1].Sub(arrivals[0]), 150*time.Millisecond)
}

func TestDeliverer_QueueFullIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	gate := &openGate{err: ErrQueueFull}
	d := NewDeliverer(DelivererConfig{Retry: fastRetry(), HTTPClient: srv.Client()}, gate)

	delivery, err := d.Deliver(context.Background(), srv.URL, testMessage())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueFull))
	require.Len(t, delivery.Attempts, 1)
	assert.Equal(t, 0, delivery.Attempts[0].StatusCode)
	assert.Equal(t, 1, gate.Calls())
	assert.Equal(t, int32(0), calls.Load())
}

func TestDeliverer_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := fastRetry()
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = 2 * time.Second
	d := NewDeliverer(DelivererConfig{Retry: cfg, HTTPClient: srv.Client()}, &openGate{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	delivery, err := d.Deliver(ctx, srv.URL, testMessage())

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Len(t, delivery.Attempts, 1)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDeliverer_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := NewDeliverer(DelivererConfig{Retry: fastRetry()}, &openGate{})

	delivery, err := d.Deliver(context.Background(), url, testMessage())

	require.Error(t, err)
	require.Len(t, delivery.Attempts, 3)
	assert.Equal(t, 0, delivery.Attempts[2].StatusCode)
	var whErr *WebhookError
	assert.False(t, errors.As(err, &whErr))
}

func TestDeliverer_RetriesQueueBehindLimiter(t *testing.T) {
	var mu sync.Mutex
	var arrivals []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	// spacing longer than the backoff, so the limiter decides the gap
	limiter := NewLimiter(LimiterConfig{Spacing: 100 * time.Millisecond})
	defer limiter.Close()
	d := NewDeliverer(DelivererConfig{Retry: fastRetry(), HTTPClient: srv.Client()}, limiter)

	_, err := d.Deliver(context.Background(), srv.URL, testMessage())

	require.Error(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, arrivals, 3)
	for i := 1; i < len(arrivals); i++ {
		assert.GreaterOrEqual(t, arrivals[i].Sub(arrivals[i-1]), 90*time.Millisecond)
	}
}

func TestDeliverer_DefaultPolicyTiming(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the full 1s/2s backoff")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDeliverer(DelivererConfig{HTTPClient: srv.Client()}, &openGate{})

	start := time.Now()
	delivery, err := d.Deliver(context.Background(), srv.URL, testMessage())

	require.Error(t, err)
	assert.Len(t, delivery.Attempts, 3)
	assert.GreaterOrEqual(t, time.Since(start), 3*time.Second)
}
