package vies

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for a single attempt.
type ErrorCategory string

const (
	// ErrorTimeout indicates the attempt exceeded its deadline.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorHTTPStatus indicates VIES answered with a non-2xx status.
	ErrorHTTPStatus ErrorCategory = "http_status"

	// ErrorNetwork covers connection refused, DNS and similar request errors.
	ErrorNetwork ErrorCategory = "network"

	// ErrorCanceled indicates the caller's context ended.
	ErrorCanceled ErrorCategory = "canceled"
)

// AttemptError describes why one HTTP attempt produced no decodable body.
type AttemptError struct {
	Category   ErrorCategory
	Attempt    int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *AttemptError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("vies attempt %d [%s]: %s: %v", e.Attempt, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("vies attempt %d [%s]: %s", e.Attempt, e.Category, e.Message)
}

func (e *AttemptError) Unwrap() error {
	return e.Underlying
}

// newAttemptError builds an AttemptError. Only timeouts are retried; every
// other request failure is terminal.
func newAttemptError(category ErrorCategory, attempt int, message string, underlying error) *AttemptError {
	return &AttemptError{
		Category:   category,
		Attempt:    attempt,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ErrorNetwork
}
