// Package errors provides structured error types for goenrichr.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the library packages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes are grouped by the stage that produces them:
//   - INPUT_FORMAT, INVALID_*: local input validation failures
//   - CATALOG_UNAVAILABLE, NO_VALID_LIBRARY: library catalog validation
//   - SUBMISSION_FAILED, VERIFICATION_FAILED, ENRICHMENT_FAILED, FETCH_*: the
//     per-library Enrichr job protocol
//   - ALL_LIBRARIES_FAILED, PERSIST_FAILED: run orchestration
//   - NETWORK_ERROR, NOT_FOUND, INTERNAL_ERROR: generic failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInputFormat, "unsupported gene list: %T", in)
//	if errors.Is(err, errors.ErrCodeInputFormat) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSubmission, origErr, "submit gene list for %s", lib)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInputFormat    Code = "INPUT_FORMAT"
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidLibrary Code = "INVALID_LIBRARY"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Catalog errors
	ErrCodeCatalogUnavailable Code = "CATALOG_UNAVAILABLE"
	ErrCodeNoValidLibrary     Code = "NO_VALID_LIBRARY"

	// Job protocol errors
	ErrCodeSubmission          Code = "SUBMISSION_FAILED"
	ErrCodeVerification        Code = "VERIFICATION_FAILED"
	ErrCodeEnrichment          Code = "ENRICHMENT_FAILED"
	ErrCodeFetchRetryExhausted Code = "FETCH_RETRY_EXHAUSTED"
	ErrCodeFetch               Code = "FETCH_FAILED"

	// Run errors
	ErrCodeAllLibrariesFailed Code = "ALL_LIBRARIES_FAILED"
	ErrCodePersist            Code = "PERSIST_FAILED"

	// Generic errors
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeNotFound Code = "NOT_FOUND"
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
// It unwraps the error chain looking for an *Error with a matching code,
// so an outer error with a different code still matches an inner one.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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
