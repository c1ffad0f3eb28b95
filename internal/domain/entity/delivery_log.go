package entity

import "time"

// DeliveryStatus is the outcome recorded for one delivery attempt.
type DeliveryStatus string

const (
	DeliveryStatusSuccess DeliveryStatus = "success"
	DeliveryStatusFailed  DeliveryStatus = "failed"
	DeliveryStatusSkipped DeliveryStatus = "skipped"
)

// DeliveryLog is one append-only accounting row.
// A nil DestinationID means no destination was configured (skip).
type DeliveryLog struct {
	ID            int64
	DestinationID *string
	Category      Category
	ContentID     string
	Status        DeliveryStatus
	StatusCode    *int
	ErrorMessage  *string
	Attempt       int
	PayloadSize   int
	DeliveredAt   time.Time
}

// NewSkippedLog builds the row written when no destination is enabled.
func NewSkippedLog(category Category, contentID string, at time.Time) DeliveryLog {
	return DeliveryLog{
		Category:    category,
		ContentID:   contentID,
		Status:      DeliveryStatusSkipped,
		Attempt:     0,
		PayloadSize: 0,
		DeliveredAt: at,
	}
}
