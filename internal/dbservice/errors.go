package dbservice

import (
	"errors"
	"fmt"
)

// ErrorType classifies database service failures.
type ErrorType string

const (
	ErrNotFound         ErrorType = "NOT_FOUND"
	ErrAuthentication   ErrorType = "AUTHENTICATION_ERROR"
	ErrRateLimit        ErrorType = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer   ErrorType = "INTERNAL_SERVER_ERROR"
	ErrNetwork          ErrorType = "NETWORK_ERROR"
	ErrTimeout          ErrorType = "TIMEOUT"
	ErrBadRequest       ErrorType = "BAD_REQUEST"
	ErrConflict         ErrorType = "CONFLICT"
	ErrForbidden        ErrorType = "FORBIDDEN"
	ErrGatewayTimeout   ErrorType = "GATEWAY_TIMEOUT"
	ErrMethodNotAllowed ErrorType = "METHOD_NOT_ALLOWED"
	ErrStatusCode       ErrorType = "STATUS_CODE_ERROR"
)

// Error is a classified database service failure.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// classifyStatus maps an HTTP status to an error type.
func classifyStatus(status int) ErrorType {
	switch status {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrAuthentication
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 405:
		return ErrMethodNotAllowed
	case 409:
		return ErrConflict
	case 429:
		return ErrRateLimit
	case 500:
		return ErrInternalServer
	case 504:
		return ErrGatewayTimeout
	default:
		return ErrStatusCode
	}
}

// statusMessage returns the canonical message for an HTTP status.
func statusMessage(status int) string {
	switch status {
	case 400:
		return "Bad request"
	case 401:
		return "Authentication failed"
	case 403:
		return "Forbidden"
	case 404:
		return "Resource not found"
	case 405:
		return "Method not allowed"
	case 409:
		return "Conflict"
	case 429:
		return "Rate limit exceeded"
	case 500:
		return "Internal server error"
	case 504:
		return "Gateway timeout"
	default:
		return "Unknown error"
	}
}

// newStatusError builds an Error from a non-2xx response.
func newStatusError(status int, body string) *Error {
	message := statusMessage(status)
	if body != "" {
		message = message + " - " + body
	}
	return &Error{
		Type:       classifyStatus(status),
		Message:    message,
		StatusCode: status,
	}
}

// IsNotFound reports whether err is a NOT_FOUND service error.
func IsNotFound(err error) bool {
	var dbErr *Error
	return errors.As(err, &dbErr) && dbErr.Type == ErrNotFound
}

// isRetryable reports whether a fresh attempt may succeed: 5xx statuses
// and transport-level failures.
func isRetryable(err error) bool {
	var dbErr *Error
	if !errors.As(err, &dbErr) {
		return false
	}
	switch dbErr.Type {
	case ErrNetwork, ErrTimeout:
		return true
	}
	switch dbErr.StatusCode {
	case 500, 502, 503, 504:
		return true
	}
	return false
}
