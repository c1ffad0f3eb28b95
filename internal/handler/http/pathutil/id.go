package pathutil

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidID is returned when a path id is not a UUID.
var ErrInvalidID = errors.New("invalid id")

// ParseID validates a UUID path segment and returns its canonical form.
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidID
	}
	return id.String(), nil
}
