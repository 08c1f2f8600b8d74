package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a roadmap error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION" // 409
	ErrCompletionFailed  ErrorCode = "COMPLETION_FAILED"  // 502
	ErrMissingCredential ErrorCode = "MISSING_CREDENTIAL" // 500
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// RoadmapError represents a structured error with code, status, and details.
type RoadmapError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is kept for logging; it is never rendered to users.
	cause error
}

// Error implements the error interface.
func (e *RoadmapError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *RoadmapError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *RoadmapError {
	return &RoadmapError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewOutOfRange creates a 400 error for a numeric field outside its range.
func NewOutOfRange(field string, value, min, max int) *RoadmapError {
	return &RoadmapError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: fmt.Sprintf("%s must be between %d and %d, got %d", field, min, max, value),
		Details: map[string]any{"field": field, "value": value, "min": min, "max": max},
	}
}

// NewNotFound creates a 404 error for an unknown resource.
func NewNotFound(identifier string) *RoadmapError {
	return &RoadmapError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInvalidTransition creates a 409 error when an action is not allowed in the current stage.
func NewInvalidTransition(action, stage string) *RoadmapError {
	return &RoadmapError{
		Code:    ErrInvalidTransition,
		Status:  409,
		Message: fmt.Sprintf("cannot %s while roadmap is %s", action, stage),
		Details: map[string]any{"action": action, "stage": stage},
	}
}

// NewCompletionFailed creates a 502 error for a failed call to the completion endpoint.
// The message is generic: auth, network and rate-limit failures look the same to users.
func NewCompletionFailed(cause error) *RoadmapError {
	return &RoadmapError{
		Code:    ErrCompletionFailed,
		Status:  502,
		Message: "the roadmap service could not produce a response",
		cause:   cause,
	}
}

// NewMissingCredential creates a 500 error when the completion API key is absent.
func NewMissingCredential(envVar string) *RoadmapError {
	return &RoadmapError{
		Code:    ErrMissingCredential,
		Status:  500,
		Message: fmt.Sprintf("API key not configured (set %s)", envVar),
		Details: map[string]any{"env": envVar},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *RoadmapError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &RoadmapError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) a RoadmapError with the given code.
func Is(err error, code ErrorCode) bool {
	var rErr *RoadmapError
	if stderrors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}

// As returns the RoadmapError in err's chain, or wraps err as INTERNAL.
func As(err error) *RoadmapError {
	var rErr *RoadmapError
	if stderrors.As(err, &rErr) {
		return rErr
	}
	return NewInternal(err)
}
