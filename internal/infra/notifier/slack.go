package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"publish-notifier/internal/resilience/retry"
)

// DefaultHTTPTimeout bounds a single webhook POST.
const DefaultHTTPTimeout = 5 * time.Second

// DelivererConfig configures a Deliverer.
type DelivererConfig struct {
	// Retry is the attempt/backoff policy. Zero value means retry.WebhookConfig().
	Retry retry.Config

	// HTTPClient is used for POSTs. Defaults to a client with DefaultHTTPTimeout.
	HTTPClient *http.Client
}

// Deliverer POSTs messages to Slack incoming webhooks.
//
// Every attempt first passes the Gate, so retries queue behind other
// senders of the same destination like any new message.
type Deliverer struct {
	gate       Gate
	httpClient *http.Client
	retry      retry.Config
}

// Attempt is the outcome of one POST.
type Attempt struct {
	Number int
	// StatusCode is 0 when no response was received.
	StatusCode int
	Err        error
	Duration   time.Duration
}

// Delivery collects the attempts made for one message.
type Delivery struct {
	PayloadSize int
	Attempts    []Attempt
}

// Succeeded reports whether the last attempt got a 2xx response.
func (d Delivery) Succeeded() bool {
	last, ok := d.Last()
	return ok && last.Err == nil
}

// Last returns the final attempt.
func (d Delivery) Last() (Attempt, bool) {
	if len(d.Attempts) == 0 {
		return Attempt{}, false
	}
	return d.Attempts[len(d.Attempts)-1], true
}

// NewDeliverer creates a Deliverer sending through gate.
func NewDeliverer(cfg DelivererConfig, gate Gate) *Deliverer {
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.WebhookConfig()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Deliverer{
		gate:       gate,
		httpClient: cfg.HTTPClient,
		retry:      cfg.Retry,
	}
}

// Deliver sends msg to webhookURL, retrying failed attempts.
//
// Any network error or non-2xx response is a failed attempt and is retried
// until the attempt budget is spent; a 2xx stops immediately. A full limiter
// queue, a closed limiter and context cancellation end the delivery without
// further attempts. The returned Delivery is populated even when err != nil.
func (d *Deliverer) Deliver(ctx context.Context, webhookURL string, msg Message) (Delivery, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return Delivery{}, fmt.Errorf("marshal webhook payload: %w", err)
	}

	delivery := Delivery{PayloadSize: len(body)}
	destination := DestinationKey(webhookURL)

	policy := d.retry
	policy.ShouldRetry = func(err error) bool {
		if ctx.Err() != nil {
			return false
		}
		return !errors.Is(err, ErrQueueFull) && !errors.Is(err, ErrLimiterClosed)
	}

	err = retry.WithBackoff(ctx, policy, func() error {
		attempt := Attempt{Number: len(delivery.Attempts) + 1}
		start := time.Now()

		if gateErr := d.gate.Acquire(ctx, webhookURL); gateErr != nil {
			attempt.Err = gateErr
			attempt.Duration = time.Since(start)
			delivery.Attempts = append(delivery.Attempts, attempt)
			return gateErr
		}

		attempt.StatusCode, attempt.Err = d.post(ctx, webhookURL, body)
		attempt.Duration = time.Since(start)
		delivery.Attempts = append(delivery.Attempts, attempt)

		if attempt.Err != nil {
			slog.Warn("slack webhook attempt failed",
				slog.String("destination", destination),
				slog.Int("attempt", attempt.Number),
				slog.Int("status_code", attempt.StatusCode),
				slog.Any("error", attempt.Err))
			return attempt.Err
		}

		slog.Info("slack webhook delivered",
			slog.String("destination", destination),
			slog.Int("attempt", attempt.Number),
			slog.Int("status_code", attempt.StatusCode),
			slog.Int("payload_size", delivery.PayloadSize))
		return nil
	})
	if err != nil {
		return delivery, fmt.Errorf("slack delivery failed after %d attempt(s): %w", len(delivery.Attempts), err)
	}
	return delivery, nil
}

// post performs one webhook request and classifies the response.
func (d *Deliverer) post(ctx context.Context, webhookURL string, body []byte) (int, error) {
	start := time.Now()
	defer func() { webhookRequestDuration.Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		webhookRequestsTotal.WithLabelValues("invalid_request").Inc()
		return 0, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		webhookRequestsTotal.WithLabelValues("network_error").Inc()
		// url.Error carries the full webhook URL, which is a secret
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		webhookRequestsTotal.WithLabelValues("2xx").Inc()
		return resp.StatusCode, nil
	}

	whErr := &WebhookError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		whErr.RetryAfter = extractRetryAfter(resp, respBody)
		webhookRequestsTotal.WithLabelValues("429").Inc()
	case resp.StatusCode >= 500:
		webhookRequestsTotal.WithLabelValues("5xx").Inc()
	default:
		webhookRequestsTotal.WithLabelValues("4xx").Inc()
	}
	return resp.StatusCode, whErr
}
