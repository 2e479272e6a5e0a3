// Package agent defines the shared surface that every provider plugin
// implements against: the API error taxonomy and connection options.
package agent

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes provider API failures.
type ErrorType string

const (
	ErrTimeout    ErrorType = "timeout_error"
	ErrStatus     ErrorType = "status_error"
	ErrConnection ErrorType = "connection_error"
	ErrRateLimit  ErrorType = "rate_limit_error"
	ErrAuth       ErrorType = "authentication_error"
)

// Error is the normalized API error returned by provider plugins.
// Retryable reports whether a fresh attempt may succeed; streams clear it
// once any output has been delivered to the caller.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Body       string    `json:"body,omitempty"`
	Retryable  bool      `json:"retryable"`

	underlying error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status: %d)", e.Type, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.underlying }

// NewTimeoutError creates a timeout error.
func NewTimeoutError(retryable bool) *Error {
	return &Error{
		Type:      ErrTimeout,
		Message:   "request timed out",
		Retryable: retryable,
	}
}

// NewStatusError creates an error from an HTTP status response.
// 429 and 5xx are considered retryable.
func NewStatusError(message string, statusCode int, requestID, body string) *Error {
	errType := ErrStatus
	switch {
	case statusCode == 401 || statusCode == 403:
		errType = ErrAuth
	case statusCode == 429:
		errType = ErrRateLimit
	}
	return &Error{
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		RequestID:  requestID,
		Body:       body,
		Retryable:  statusCode == 429 || statusCode >= 500,
	}
}

// NewConnectionError wraps a transport-level failure.
func NewConnectionError(underlying error, retryable bool) *Error {
	msg := "connection failed"
	if underlying != nil {
		msg = underlying.Error()
	}
	return &Error{
		Type:       ErrConnection,
		Message:    msg,
		Retryable:  retryable,
		underlying: underlying,
	}
}

// IsRetryable reports whether err is a provider error marked retryable.
func IsRetryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

// ConnectOptions controls request timeouts and retry behavior for
// provider calls.
type ConnectOptions struct {
	Timeout       time.Duration
	MaxRetry      int
	RetryInterval time.Duration
}

// DefaultConnectOptions returns the baseline options used when the caller
// does not override them.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		Timeout:       10 * time.Second,
		MaxRetry:      3,
		RetryInterval: 2 * time.Second,
	}
}
