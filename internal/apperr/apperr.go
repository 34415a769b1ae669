// Package apperr defines the error taxonomy shared across the pipeline.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure that callers and the HTTP layer can act on.
type Code string

const (
	CodeTranscriptNotAvailable Code = "transcript_not_available"
	CodeVideoNotFound          Code = "video_not_found"
	CodeRateLimited            Code = "rate_limited"
	CodeQuotaExceeded          Code = "quota_exceeded"
	CodeFactCheckUnavailable   Code = "fact_check_unavailable"
	CodeLLMUnavailable         Code = "llm_unavailable"
	CodeInvalidInput           Code = "invalid_input"
	CodePermissionDenied       Code = "permission_denied"
	CodeSummaryNotFound        Code = "summary_not_found"
	CodeDailyLimitReached      Code = "daily_limit_reached"
	CodeVideoLimitReached      Code = "video_limit_reached"
)

// Error carries a taxonomy code, a human-readable message and optional context
// fields that are serialized into the HTTP error body.
type Error struct {
	Code    Code
	Message string
	Context map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a taxonomy error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a taxonomy error wrapping an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithContext attaches a context field for the error body.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the taxonomy code from err, or empty if err is not ours.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// HTTPStatus maps a taxonomy code to the status the API surfaces.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeVideoNotFound, CodeSummaryNotFound:
		return http.StatusNotFound
	case CodeQuotaExceeded, CodeRateLimited, CodeDailyLimitReached, CodeVideoLimitReached:
		return http.StatusTooManyRequests
	case CodeTranscriptNotAvailable, CodeLLMUnavailable, CodeFactCheckUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
