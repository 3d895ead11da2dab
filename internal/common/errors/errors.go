// Package errors provides custom error types for the Jean backend.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes as constants
const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeLaunchFailed   = "LAUNCH_FAILED"
	ErrCodeStartupTimeout = "STARTUP_TIMEOUT"
	ErrCodeNotInstalled   = "CLI_NOT_INSTALLED"
)

// AppError represents an application-specific error with additional context.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"http_status"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a new not found error for a resource.
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s with id '%s' not found", resource, id),
		HTTPStatus: http.StatusNotFound,
	}
}

// BadRequest creates a new bad request error.
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Conflict creates a new conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:       ErrCodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// InternalError creates a new internal server error with a wrapped underlying error.
func InternalError(message string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeInternalError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// LaunchFailed creates an error for a CLI process that could not be spawned.
func LaunchFailed(vendor string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeLaunchFailed,
		Message:    fmt.Sprintf("failed to launch %s CLI", vendor),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// StartupTimeout creates an error for a run that produced no output in time.
func StartupTimeout(vendor string, stderr string) *AppError {
	msg := fmt.Sprintf("%s CLI startup timeout - no output received", vendor)
	if stderr != "" {
		msg += ": " + stderr
	}
	return &AppError{
		Code:       ErrCodeStartupTimeout,
		Message:    msg,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// NotInstalled creates an error for a CLI binary that could not be resolved.
func NotInstalled(vendor string) *AppError {
	return &AppError{
		Code:       ErrCodeNotInstalled,
		Message:    fmt.Sprintf("%s CLI is not installed", vendor),
		HTTPStatus: http.StatusFailedDependency,
	}
}

// Wrap wraps an existing error with additional context, returning an AppError.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	// If the error is already an AppError, preserve its code and status
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:       appErr.Code,
			Message:    fmt.Sprintf("%s: %s", message, appErr.Message),
			HTTPStatus: appErr.HTTPStatus,
			Err:        err,
		}
	}

	// Otherwise, wrap as an internal error
	return &AppError{
		Code:       ErrCodeInternalError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeNotFound
	}
	return false
}

// GetHTTPStatus returns the HTTP status code for an error.
// Returns 500 Internal Server Error if the error is not an AppError.
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
