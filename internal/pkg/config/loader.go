// Package config loads fail-open settings for long-running components.
//
// Unlike pkg/config, which rejects bad values at startup, loaders here fall
// back to the default, report a warning and let the caller count it. The
// news sync worker uses this so a typo in a schedule does not stop
// notifications.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Result is one loaded value.
type Result[T any] struct {
	Value T
	// Warning is set when the environment value was rejected.
	Warning         string
	FallbackApplied bool
}

func load[T any](key string, def T, parse func(string) (T, error), validate func(T) error) Result[T] {
	raw := os.Getenv(key)
	if raw == "" {
		return Result[T]{Value: def}
	}

	v, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(v)
	}
	if err != nil {
		return Result[T]{
			Value:           def,
			Warning:         fmt.Sprintf("invalid %s=%q: %v, falling back to %v", key, raw, err, def),
			FallbackApplied: true,
		}
	}
	return Result[T]{Value: v}
}

// LoadString reads key, falling back to def when unset or rejected by validate.
func LoadString(key, def string, validate func(string) error) Result[string] {
	return load(key, def, func(s string) (string, error) { return s, nil }, validate)
}

// LoadInt reads an integer.
func LoadInt(key string, def int, validate func(int) error) Result[int] {
	return load(key, def, strconv.Atoi, validate)
}

// LoadDuration reads a time.ParseDuration value such as "90s".
func LoadDuration(key string, def time.Duration, validate func(time.Duration) error) Result[time.Duration] {
	return load(key, def, time.ParseDuration, validate)
}

// LoadBool reads a strconv.ParseBool value.
func LoadBool(key string, def bool) Result[bool] {
	return load(key, def, strconv.ParseBool, nil)
}
