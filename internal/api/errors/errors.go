package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/feral-file/ff-sticker/internal/domain"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest        ErrorCode = "bad_request"
	ErrCodeValidationFailed  ErrorCode = "validation_failed"
	ErrCodeUnauthorized      ErrorCode = "unauthorized"
	ErrCodePayloadTooLarge   ErrorCode = "payload_too_large"
	ErrCodeUnsupportedFormat ErrorCode = "unsupported_format"
	ErrCodeConversionFailed  ErrorCode = "conversion_failed"
	ErrCodeNoMetadata        ErrorCode = "no_metadata"

	// Server errors (5xx)
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeFetchFailed   ErrorCode = "fetch_failed"
	ErrCodeTimeout       ErrorCode = "timeout"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

// Response is the body of every error response
type Response struct {
	Error *APIError `json:"error"`
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewValidationError(details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeValidationFailed,
		Message: "Validation failed",
		Details: strings.Join(details, ", "),
	}
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewPayloadTooLargeError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodePayloadTooLarge,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewInternalError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeInternalError,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

// FromConversionError maps a pipeline error to an HTTP status and API error
func FromConversionError(err error) (int, *APIError) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, NewValidationError("exactly one of file or url is required")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, &APIError{Code: ErrCodeTimeout, Message: "Conversion timed out"}
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, &APIError{
			Code:    ErrCodeUnsupportedFormat,
			Message: "Unsupported source format",
			Details: err.Error(),
		}
	case errors.Is(err, domain.ErrFetchFailure):
		return http.StatusBadGateway, &APIError{
			Code:    ErrCodeFetchFailed,
			Message: "Failed to fetch source",
			Details: err.Error(),
		}
	case errors.Is(err, domain.ErrExhausted):
		return http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeConversionFailed,
			Message: "Sticker conversion failed",
			Details: err.Error(),
		}
	default:
		return http.StatusInternalServerError, NewInternalError("Internal server error")
	}
}
