package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

// TestAppError_Error verifies error message formatting.
func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "error without underlying error",
			appError: New(ErrNotFound, "concept not found"),
			want:     "[NOT_FOUND] concept not found",
		},
		{
			name:     "error with underlying error",
			appError: Wrap(ErrDatabase, "query failed", stderrors.New("connection lost")),
			want:     "[DATABASE_ERROR] query failed: connection lost",
		},
		{
			name:     "import diagnostic",
			appError: New(ErrSchemaViolation, "record 2: title is required"),
			want:     "[SCHEMA_VIOLATION] record 2: title is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestAppError_Unwrap verifies unwrapping of underlying error.
func TestAppError_Unwrap(t *testing.T) {
	underlyingErr := stderrors.New("underlying error")

	tests := []struct {
		name          string
		appError      *AppError
		wantUnwrapped error
	}{
		{
			name:          "with underlying error",
			appError:      Wrap(ErrTransport, "push failed", underlyingErr),
			wantUnwrapped: underlyingErr,
		},
		{
			name:          "without underlying error",
			appError:      New(ErrTransport, "push failed"),
			wantUnwrapped: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Unwrap()
			if got != tt.wantUnwrapped {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantUnwrapped)
			}
		})
	}
}

// TestNewf verifies formatted message construction.
func TestNewf(t *testing.T) {
	err := Newf(ErrUnknownField, "unknown field %q", "color")
	if err.Code != ErrUnknownField {
		t.Errorf("Newf() code = %q, want %q", err.Code, ErrUnknownField)
	}
	if err.Message != `unknown field "color"` {
		t.Errorf("Newf() message = %q, want %q", err.Message, `unknown field "color"`)
	}
}

// TestIs verifies error code checking across wrapped chains.
func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{
			name: "matching AppError",
			err:  New(ErrDuplicateTitle, "title already present"),
			code: ErrDuplicateTitle,
			want: true,
		},
		{
			name: "non-matching AppError",
			err:  New(ErrEmptyBatch, "no records"),
			code: ErrMalformedInput,
			want: false,
		},
		{
			name: "AppError wrapped with fmt.Errorf",
			err:  fmt.Errorf("handler: %w", New(ErrTransport, "pull failed")),
			code: ErrTransport,
			want: true,
		},
		{
			name: "non-AppError",
			err:  stderrors.New("standard error"),
			code: ErrTransport,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Is(tt.err, tt.code)
			if got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCodeOf verifies code extraction and the internal fallback.
func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "plain AppError",
			err:  New(ErrSchemaViolation, "title missing"),
			want: ErrSchemaViolation,
		},
		{
			name: "wrapped AppError",
			err:  fmt.Errorf("import: %w", New(ErrMalformedInput, "bad JSON")),
			want: ErrMalformedInput,
		},
		{
			name: "standard error falls back to internal",
			err:  stderrors.New("boom"),
			want: ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestErrorCodes_areUnique verifies all error codes are unique.
func TestErrorCodes_areUnique(t *testing.T) {
	codes := []ErrorCode{
		ErrInternal, ErrInvalid, ErrNotFound, ErrValidation,
		ErrDatabase,
		ErrMalformedInput, ErrSchemaViolation, ErrUnknownField, ErrDuplicateTitle, ErrEmptyBatch, ErrImportFailed,
		ErrTransport, ErrSyncFailed,
		ErrExportFailed, ErrRestoreFailed, ErrInvalidPassword, ErrCorruptedArchive,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("ErrorCode %q is duplicated", code)
		}
		seen[code] = true
	}
}
