// Package errors provides structured error types for GridFold.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - CONFIG_*: Input/configuration validation failures
//   - DEGENERATE_*: Numerically degenerate network conditions
//   - SERVICE_*: External collaborator failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownBus, "external bus %d not in case", id)
//	if errors.Is(err, errors.ErrCodeUnknownBus) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeServiceUnavailable, origErr, "dc flow solve failed")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors. All abort the reduction with no partial output.
	ErrCodeUnknownBus  Code = "CONFIG_UNKNOWN_BUS"
	ErrCodeDCTerminal  Code = "CONFIG_DC_TERMINAL"
	ErrCodeInvalidCase Code = "CONFIG_INVALID_CASE"
	ErrCodeInvalidMode Code = "CONFIG_INVALID_MODE"

	// Numerical degeneracy that no documented policy can absorb
	// (e.g. a relocated generator with no retained neighbor).
	ErrCodeDegenerateNode Code = "DEGENERATE_NODE"

	// External collaborator errors.
	ErrCodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"

	// Internal errors.
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsConfig reports whether err carries any CONFIG_* code.
func IsConfig(err error) bool {
	switch GetCode(err) {
	case ErrCodeUnknownBus, ErrCodeDCTerminal, ErrCodeInvalidCase, ErrCodeInvalidMode:
		return true
	}
	return false
}
