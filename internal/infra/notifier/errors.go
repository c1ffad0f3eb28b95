package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrQueueFull is returned by the limiter when a destination already has
	// the maximum number of messages waiting.
	ErrQueueFull = errors.New("rate limiter queue full")

	// ErrLimiterClosed is returned to waiters when the limiter shuts down.
	ErrLimiterClosed = errors.New("rate limiter closed")
)

// maxErrorBodyLength bounds how much of a webhook error body is kept.
const maxErrorBodyLength = 512

// WebhookError is a non-2xx response from the webhook endpoint.
type WebhookError struct {
	StatusCode int
	Body       string
	// RetryAfter is set for 429 responses that carried a hint.
	RetryAfter time.Duration
}

func (e *WebhookError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("slack webhook returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("slack webhook returned HTTP %d: %s", e.StatusCode, e.Body)
}

type slackRateLimitBody struct {
	RetryAfter float64 `json:"retry_after"`
}

// extractRetryAfter reads the retry hint of a 429 response, JSON body first,
// then the Retry-After header (seconds). Returns 0 when neither is present.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var parsed slackRateLimitBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.RetryAfter > 0 {
		return time.Duration(parsed.RetryAfter * float64(time.Second))
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 0
}

// RetryAfterHint lets the retry policy honour Slack's 429 hint.
func (e *WebhookError) RetryAfterHint() time.Duration {
	return e.RetryAfter
}
