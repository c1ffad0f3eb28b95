// Package notify turns "content was published" events into Slack deliveries.
// It resolves the destination for a category, formats the message, hands it
// to the delivery engine and records one accounting row per attempt.
package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrInvalidRequest indicates missing or malformed request fields.
	// Nothing is attempted or logged for such requests.
	ErrInvalidRequest = errors.New("invalid notification request")

	// ErrContentNotFound indicates the content store has no record for the request.
	ErrContentNotFound = errors.New("content not found")

	// ErrTooManyItems rejects news batches above MaxNewsIDs.
	ErrTooManyItems = errors.New("too many news items")

	errNoSuccessfulAttempt = errors.New("delivery ended without a successful attempt")
)

// MaxNewsIDs bounds one NotifyNews call. At the default one-second spacing
// a full batch still fits inside the notification timeout.
const MaxNewsIDs = 50

// Reason classifies a non-successful outcome so transports can choose a status code.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonValidation  Reason = "validation"
	ReasonNotFound    Reason = "not_found"
	ReasonTimeout     Reason = "timeout"
	ReasonDelivery    Reason = "delivery"
	ReasonRateLimited Reason = "rate_limited"
	ReasonLookup      Reason = "lookup"
)
