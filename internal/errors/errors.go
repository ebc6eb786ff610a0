// Package errors provides structured error types for the intake bot.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	// ErrTimeout marks a transient long-poll timeout. Expected during normal
	// operation; callers continue without logging.
	ErrTimeout = errors.New("operation timed out")

	// ErrConflict means another bot instance is polling with the same token.
	ErrConflict = errors.New("another instance is polling")

	// ErrRateLimit marks a platform rate limit. Use RateLimitError to carry
	// the retry-after duration.
	ErrRateLimit = errors.New("rate limit exceeded")

	ErrNotFound    = errors.New("resource not found")
	ErrUnavailable = errors.New("service unavailable")
)

// APIError represents an error returned by an external HTTP API.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// RateLimitError carries the wait the platform asked for.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited, retry after %s", e.Service, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimit }

// RetryAfterOf extracts the platform-specified wait from err, or 0.
func RetryAfterOf(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}
