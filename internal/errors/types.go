// Package errors provides structured error types and handling utilities
// for the git activity hook.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents a specific error condition
type ErrorCode string

// Error codes for different types of failures
const (
	// Client errors (4xx)
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Server errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// ErrorCategory represents the type of error for handling strategy
type ErrorCategory string

const (
	// CategoryClientError represents sender mistakes (4xx HTTP errors)
	CategoryClientError ErrorCategory = "CLIENT_ERROR"
	// CategoryServerError represents our system errors
	CategoryServerError ErrorCategory = "SERVER_ERROR"
)

// ServiceError represents a structured error with context
type ServiceError struct {
	Code      ErrorCode              `json:"code"`
	Category  ErrorCategory          `json:"category"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"` // Original error, not serialized
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with wrapped errors
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// IsClientError returns true if the error is caused by the webhook sender
func (e *ServiceError) IsClientError() bool {
	return e.Category == CategoryClientError
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
// Internal failures map to 422, which is what Bitbucket shows as a failed delivery.
func (e *ServiceError) HTTPStatusCode() int {
	switch e.Code {
	case ErrCodeInvalidRequest, ErrCodeMalformedPayload, ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeInternalError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// New creates a ServiceError with the default category for its code
func New(code ErrorCode, message string) *ServiceError {
	return &ServiceError{
		Code:      code,
		Category:  defaultCategory(code),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap creates a ServiceError around an underlying cause
func Wrap(code ErrorCode, message string, cause error) *ServiceError {
	e := New(code, message)
	e.Cause = cause
	return e
}

// WithContext adds context information and returns the same error
func (e *ServiceError) WithContext(key string, value interface{}) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRequestID sets the delivery/request ID for tracing
func (e *ServiceError) WithRequestID(requestID string) *ServiceError {
	e.RequestID = requestID
	return e
}

// MalformedPayload reports a webhook body whose structure prevents any processing
func MalformedPayload(cause error) *ServiceError {
	return Wrap(ErrCodeMalformedPayload, "webhook payload is malformed", cause)
}

// Internal reports an unexpected failure while processing a whole request
func Internal(message string, cause error) *ServiceError {
	return Wrap(ErrCodeInternalError, message, cause)
}

// As extracts a ServiceError from an error chain
func As(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasCode reports whether err carries a ServiceError with the given code
func HasCode(err error, code ErrorCode) bool {
	se, ok := As(err)
	return ok && se.Code == code
}

// ErrorResponse represents the JSON response format for API errors
type ErrorResponse struct {
	Error     ErrorCode              `json:"error"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ToErrorResponse converts ServiceError to ErrorResponse for API responses
func (e *ServiceError) ToErrorResponse() *ErrorResponse {
	return &ErrorResponse{
		Error:     e.Code,
		Message:   e.Message,
		Context:   e.Context,
		Timestamp: e.Timestamp,
		RequestID: e.RequestID,
	}
}

// MarshalJSON implements json.Marshaler for structured logging
func (e *ServiceError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToErrorResponse())
}

// WriteHTTP writes err as a JSON error response. Errors that are not
// ServiceErrors are reported as internal failures.
func WriteHTTP(w http.ResponseWriter, err error) {
	se, ok := As(err)
	if !ok {
		se = Internal("unexpected error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(se.HTTPStatusCode())
	_ = json.NewEncoder(w).Encode(se.ToErrorResponse())
}

func defaultCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeMalformedPayload, ErrCodeNotFound,
		ErrCodeRateLimited, ErrCodeValidationFailed:
		return CategoryClientError
	default:
		return CategoryServerError
	}
}
