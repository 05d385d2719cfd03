package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// ProviderError is a classified provider-side failure. Transient errors
// are retried inside the client; fatal ones propagate to the conductor
// and abort the run with a descriptive reason.
type ProviderError struct {
	// StatusCode is the HTTP status when known, zero otherwise.
	StatusCode int
	// Transient marks rate limits, overload, and network flakes that a
	// retry may clear.
	Transient bool
	// Err is the underlying SDK or transport error.
	Err error
}

// Error implements error.
func (e *ProviderError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error (%s, status %d): %v", kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider error (%s): %v", kind, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// classify wraps a raw SDK error in a ProviderError. Context
// cancellation passes through untouched so callers can distinguish
// caller-initiated aborts from provider failures.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 408 || apierr.StatusCode == 409 || apierr.StatusCode == 429:
			return &ProviderError{StatusCode: apierr.StatusCode, Transient: true, Err: err}
		case apierr.StatusCode >= 500:
			// Includes Anthropic's 529 "overloaded".
			return &ProviderError{StatusCode: apierr.StatusCode, Transient: true, Err: err}
		default:
			// 400 invalid request, 401/403 auth, 404 unknown model.
			return &ProviderError{StatusCode: apierr.StatusCode, Transient: false, Err: err}
		}
	}

	// No HTTP status: treat as a network-level flake.
	return &ProviderError{Transient: true, Err: err}
}

// IsFatal reports whether the error is a non-retryable provider failure.
func IsFatal(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && !perr.Transient
}
