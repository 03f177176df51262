package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrExtractionFailure   = errors.New("extraction failure")
	ErrAnalysisTimeout     = errors.New("analysis timeout")
	ErrBadRequest          = errors.New("bad request")
	ErrTooManyRequests     = errors.New("too many requests")
	ErrInternal            = errors.New("internal error")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinel as well as the wrapped cause.
func (e *AppError) Is(target error) bool {
	switch e.Code {
	case "UNSUPPORTED_FILE_TYPE":
		return target == ErrUnsupportedFileType
	case "EXTRACTION_FAILURE":
		return target == ErrExtractionFailure
	case "ANALYSIS_TIMEOUT":
		return target == ErrAnalysisTimeout
	}
	return false
}

// UnsupportedFileType is a client error listing the accepted kinds.
func UnsupportedFileType(fileName, accepted string) *AppError {
	return &AppError{
		Err:        ErrUnsupportedFileType,
		Message:    fmt.Sprintf("Unsupported file type. Allowed: %s.", accepted),
		Code:       "UNSUPPORTED_FILE_TYPE",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]string{"fileName": fileName},
	}
}

// ExtractionFailure wraps an OCR or PDF library failure. The cause is part of
// the message shown to the caller.
func ExtractionFailure(cause error) *AppError {
	return &AppError{
		Err:        cause,
		Message:    "Analysis failed. " + cause.Error(),
		Code:       "EXTRACTION_FAILURE",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// AnalysisTimeout is returned when the caller's deadline expires first.
func AnalysisTimeout(cause error) *AppError {
	return &AppError{
		Err:        cause,
		Message:    "Analysis timed out. Try a smaller or clearer file.",
		Code:       "ANALYSIS_TIMEOUT",
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    message,
		Code:       "BAD_REQUEST",
		HTTPStatus: http.StatusBadRequest,
	}
}

// PayloadTooLarge is returned when an upload exceeds the size limit.
func PayloadTooLarge(limitMB int) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    fmt.Sprintf("File too large. Maximum size is %dMB.", limitMB),
		Code:       "PAYLOAD_TOO_LARGE",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
}

func TooManyRequests() *AppError {
	return &AppError{
		Err:        ErrTooManyRequests,
		Message:    "Too many requests",
		Code:       "RATE_LIMITED",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// From returns err as an *AppError, treating anything else as internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
