// Package errors provides the error codes shared across ConceptDeck.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of failure that callers can branch on.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Database errors
	ErrDatabase ErrorCode = "DATABASE_ERROR"

	// Import diagnostics
	ErrMalformedInput  ErrorCode = "MALFORMED_INPUT"
	ErrSchemaViolation ErrorCode = "SCHEMA_VIOLATION"
	ErrUnknownField    ErrorCode = "UNKNOWN_FIELD"
	ErrDuplicateTitle  ErrorCode = "DUPLICATE_TITLE"
	ErrEmptyBatch      ErrorCode = "EMPTY_BATCH"
	ErrImportFailed    ErrorCode = "IMPORT_FAILED"

	// Sync errors
	ErrTransport  ErrorCode = "TRANSPORT_FAILURE"
	ErrSyncFailed ErrorCode = "SYNC_FAILED"

	// Export errors
	ErrExportFailed     ErrorCode = "EXPORT_FAILED"
	ErrRestoreFailed    ErrorCode = "RESTORE_FAILED"
	ErrInvalidPassword  ErrorCode = "INVALID_PASSWORD"
	ErrCorruptedArchive ErrorCode = "CORRUPTED_ARCHIVE"
)

// AppError carries a code alongside the human-readable message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the error code from err, unwrapping as needed.
// Errors without an AppError in their chain map to ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}
