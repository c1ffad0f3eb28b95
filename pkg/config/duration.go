package config

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNonPositiveDuration is returned for zero or negative durations.
	ErrNonPositiveDuration = errors.New("duration must be positive")
	// ErrNegativeDuration is returned for negative durations.
	ErrNegativeDuration = errors.New("duration must not be negative")
)

// ValidatePositiveDuration rejects d <= 0.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: got %v", ErrNonPositiveDuration, d)
	}
	return nil
}

// ValidateNonNegativeDuration rejects d < 0. Zero is allowed.
func ValidateNonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: got %v", ErrNegativeDuration, d)
	}
	return nil
}

// ValidateDurationRange requires min <= d <= max.
func ValidateDurationRange(d, min, max time.Duration) error {
	if d < min || d > max {
		return fmt.Errorf("duration %v out of range [%v, %v]", d, min, max)
	}
	return nil
}
