package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an error for callers that need to map it onto a
// transport-level response (HTTP status, CLI exit code).
type ErrorCode string

const (
	CodeValidation ErrorCode = "validation" // bad request shape
	CodeNotFound   ErrorCode = "not_found"  // unknown symbol or strategy
	CodeIngestion  ErrorCode = "ingestion"  // external data source failure
	CodeInternal   ErrorCode = "internal"   // anything unexpected
)

// Error is a coded error with a human-readable message and an optional
// wrapped cause. Validation and lookup errors are detected synchronously
// before simulation starts and are never retried.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf returns a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a not-found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Ingestionf returns an ingestion error wrapping cause, which may be nil.
func Ingestionf(cause error, format string, args ...any) *Error {
	return &Error{Code: CodeIngestion, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Internalf returns an internal error wrapping cause, which may be nil.
func Internalf(cause error, format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...), Err: cause}
}

// CodeOf extracts the ErrorCode from err. Errors without a code are
// classified as internal.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsIngestion reports whether err is an ingestion error.
func IsIngestion(err error) bool { return CodeOf(err) == CodeIngestion }
