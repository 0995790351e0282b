package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork          ErrorType = "network"
	ErrorTypeRateLimit        ErrorType = "rate_limit"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeServerError      ErrorType = "server_error"
	ErrorTypeParsing          ErrorType = "parsing"
	ErrorTypeAllMirrorsFailed ErrorType = "all_mirrors_failed"
	ErrorTypeStorage          ErrorType = "storage"
	ErrorTypeUnknown          ErrorType = "unknown"
)

// Error represents a classified failure with an optional HTTP status code
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(errorType ErrorType, code int, message string) *Error {
	return &Error{Type: errorType, Code: code, Message: message}
}

// Wrap creates a classified error around a cause
func Wrap(errorType ErrorType, err error, message string) *Error {
	return &Error{Type: errorType, Message: fmt.Sprintf("%s: %v", message, err), Err: err}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is not classified
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given ErrorType anywhere in its chain
func Is(err error, errorType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errorType {
			return true
		}
		err = e.Err
	}
	return false
}

// FromStatusCode classifies a non-success HTTP status code
func FromStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 404 || statusCode == 410:
		return ErrorTypeNotFound
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}
