package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures so the poll loop can decide how to react.
type ErrorType string

const (
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeAuth         ErrorType = "auth"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeServerError  ErrorType = "server_error"
	ErrorTypeDisk         ErrorType = "disk"
	ErrorTypeFile         ErrorType = "file"
	ErrorTypeCorruptState ErrorType = "corrupt_state"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error carries a failure type alongside the message and, for HTTP-backed
// operations, the status code that produced it.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error without an HTTP status code.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error from an underlying one.
func Wrap(t ErrorType, err error) *Error {
	return &Error{Type: t, Message: err.Error()}
}

// TypeOf extracts the ErrorType from an error chain, defaulting to unknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable reports whether an error type is worth retrying.
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsTransientRemote reports whether an error is a remote-platform failure
// that should cost a cycle, not the process.
func IsTransientRemote(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNetwork, ErrorTypeAuth, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	}
	return false
}

// IsLocalResource reports whether an error concerns local disk or files;
// these abort the current item only.
func IsLocalResource(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeDisk, ErrorTypeFile:
		return true
	}
	return false
}

// IsFatal reports whether an error should stop the process rather than be
// retried next cycle. Only configuration problems qualify.
func IsFatal(err error) bool {
	return TypeOf(err) == ErrorTypeConfig
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error, no response
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
