// Package destination provides use cases for managing Slack webhook destinations.
// Destinations are created, edited and disabled; they are never deleted.
package destination

import "errors"

// Sentinel errors for destination use case operations.
var (
	// ErrDestinationNotFound indicates that the requested destination was not found.
	ErrDestinationNotFound = errors.New("destination not found")

	// ErrDuplicateDestination indicates that another enabled destination
	// already posts the same category to the same channel.
	ErrDuplicateDestination = errors.New("an enabled destination already exists for this category and channel")
)
