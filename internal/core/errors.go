// internal/core/errors.go
package core

import (
	"fmt"
	"strings"
	"time"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Errorf wraps a formatted cause in base.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// MissingFieldsError reports indicator fields that were undefined on the bar at t.
func MissingFieldsError(t time.Time, fields ...string) *Error {
	return Errorf(ErrDataValidation, "bar %s has undefined fields: %s",
		t.UTC().Format(time.RFC3339), strings.Join(fields, ", "))
}

// Predefined errors
var (
	// Configuration errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Provider errors
	ErrProvider    = &Error{Code: "PROVIDER_FAILED", Message: "price provider failed"}
	ErrUnknownPair = &Error{Code: "UNKNOWN_PAIR", Message: "unknown trading pair"}

	// Pipeline errors
	ErrDataValidation   = &Error{Code: "DATA_VALIDATION", Message: "data validation failed"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for metrics"}

	// Storage errors
	ErrNotFound = &Error{Code: "NOT_FOUND", Message: "record not found"}
	ErrStorage  = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}

	// API errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// Commentary errors
	ErrCommentary = &Error{Code: "COMMENTARY_FAILED", Message: "commentary request failed"}
)
