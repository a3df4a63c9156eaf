// Package errors provides structured error types and response helpers for the browse API.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/cascade-ml/cascade-ui/internal/browser"
	"github.com/cascade-ml/cascade-ui/internal/navigator"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
	"github.com/cascade-ml/cascade-ui/internal/provider"
)

// Error codes for structured API responses.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeNoData               = "NO_DATA"
	CodeUnrecognizedLineType = "UNRECOGNIZED_LINE_TYPE"
	CodeInternalError        = "INTERNAL_ERROR"
)

// APIError represents a structured API error response.
type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy of the error with additional details.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	return &APIError{
		Code:      e.Code,
		Message:   e.Message,
		Details:   details,
		RequestID: e.RequestID,
	}
}

// WithRequestID returns a copy of the error with the request ID set.
func (e *APIError) WithRequestID(requestID string) *APIError {
	return &APIError{
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		RequestID: requestID,
	}
}

// New creates a new APIError with the given code and message.
func New(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *APIError {
	return New(CodeValidationError, message)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *APIError {
	return New(CodeNotFound, message)
}

// NewNoDataError reports that the tracking backend returned no data.
func NewNoDataError(message string) *APIError {
	return New(CodeNoData, message)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *APIError {
	return New(CodeInternalError, message)
}

// FromError maps an error returned by the browser to an APIError.
func FromError(err error) *APIError {
	var apiErr *APIError
	var lineTypeErr *navigator.UnrecognizedLineTypeError
	var statusErr *provider.StatusError

	switch {
	case stderrors.As(err, &apiErr):
		return apiErr
	case stderrors.As(err, &lineTypeErr):
		return New(CodeUnrecognizedLineType, err.Error()).WithDetails(map[string]any{
			"line_type": string(lineTypeErr.LineType),
			"path":      lineTypeErr.Path,
		})
	case stderrors.Is(err, pathspec.ErrUnknownLineType):
		return New(CodeUnrecognizedLineType, err.Error())
	case stderrors.Is(err, pathspec.ErrInvalidPath), stderrors.Is(err, browser.ErrEmptyComment):
		return NewValidationError(err.Error())
	case stderrors.Is(err, browser.ErrLineNotFound):
		return NewNotFoundError(err.Error())
	case stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		return NewNotFoundError(err.Error())
	case stderrors.Is(err, provider.ErrNoData):
		return NewNoDataError(err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewNoDataError("backend did not answer in time")
	}
	return NewInternalError(err.Error())
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *APIError) HTTPStatusCode() int {
	switch e.Code {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNoData:
		return http.StatusBadGateway
	case CodeUnrecognizedLineType:
		return http.StatusUnprocessableEntity
	case CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an APIError as a JSON response.
func WriteError(w http.ResponseWriter, err *APIError) {
	WriteJSON(w, err.HTTPStatusCode(), err)
}

// WriteErrorWithRequestID writes an APIError with the request ID set.
func WriteErrorWithRequestID(w http.ResponseWriter, err *APIError, requestID string) {
	WriteError(w, err.WithRequestID(requestID))
}

// GetStackTrace returns the current stack trace as a string.
func GetStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ValidationError represents a field-level validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of field-level validation errors.
type ValidationErrors []ValidationError

// Add adds a new validation error for a field.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any validation errors.
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// ToAPIError converts validation errors to an APIError with field details.
func (v ValidationErrors) ToAPIError() *APIError {
	if len(v) == 0 {
		return NewValidationError("validation failed")
	}

	mainMessage := v[0].Message
	if len(v) > 1 {
		mainMessage = fmt.Sprintf("%s (and %d more errors)", mainMessage, len(v)-1)
	}

	return &APIError{
		Code:    CodeValidationError,
		Message: mainMessage,
		Details: map[string]any{
			"fields": v,
		},
	}
}

// ErrorLogEntry represents a structured error log entry.
type ErrorLogEntry struct {
	CorrelationID string `json:"correlation_id"`
	ErrorCode     string `json:"error_code"`
	Message       string `json:"message"`
	StackTrace    string `json:"stack_trace"`
}

// NewErrorLogEntry creates a new error log entry with all required fields.
func NewErrorLogEntry(correlationID, errorCode, message string) *ErrorLogEntry {
	return &ErrorLogEntry{
		CorrelationID: correlationID,
		ErrorCode:     errorCode,
		Message:       message,
		StackTrace:    GetStackTrace(),
	}
}

// ToSlogAttrs returns the error log entry as slog attributes for structured logging.
func (e *ErrorLogEntry) ToSlogAttrs() []any {
	return []any{
		"correlation_id", e.CorrelationID,
		"error_code", e.ErrorCode,
		"message", e.Message,
		"stack_trace", e.StackTrace,
	}
}
