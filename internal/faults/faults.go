// Package faults holds the error kinds shared by the router components.
package faults

import (
	"errors"
	"fmt"
	"time"
)

// #region sentinels

var (
	// ErrConfiguration marks a startup-time validation failure. Fatal.
	ErrConfiguration = errors.New("configuration error")

	// ErrClassifierUnavailable means the out-of-domain scorer or intent
	// classifier could not produce a usable result.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrUnknownIntentLabel means a classifier produced a label outside the
	// closed set, or the dispatcher received one.
	ErrUnknownIntentLabel = errors.New("unknown intent label")

	// ErrGenerationExhausted means every generation attempt failed.
	ErrGenerationExhausted = errors.New("generation exhausted")
)

// #endregion sentinels

// #region exhausted

// ExhaustedError carries the retry history of a failed generation.
type ExhaustedError struct {
	Attempts int
	Delays   []time.Duration
	Err      error // last underlying error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrGenerationExhausted, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrGenerationExhausted) match.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrGenerationExhausted
}

// #endregion exhausted

// #region helpers

// Configf wraps a formatted message as a configuration error.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// #endregion helpers
