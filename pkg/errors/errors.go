package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ErrorType categorizes different error types
type ErrorType string

const (
	// ErrorTypeNetwork covers any request that did not complete, timeouts included
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeUnauthorized covers missing login and insufficient privilege
	ErrorTypeUnauthorized ErrorType = "unauthorized"

	// ErrorTypeValidation is a local, pre-flight rejection
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeNotFound means the post or comment no longer exists server-side
	ErrorTypeNotFound ErrorType = "not_found"

	ErrorTypeServer  ErrorType = "server"
	ErrorTypeUnknown ErrorType = "unknown"
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Message    string
	Cause      error
	Suggestion string
	StatusCode int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a helpful suggestion to the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// HasSuggestion returns true if the error has a suggestion
func (e *Error) HasSuggestion() bool {
	return e.Suggestion != ""
}

// New creates a new error of the given type
func New(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NetworkError creates a network error
func NetworkError(message string, cause error) *Error {
	err := New(ErrorTypeNetwork, message, cause)
	err.Suggestion = "Check your internet connection and try again."
	return err
}

// TimeoutError creates a network error for a request that timed out
func TimeoutError(cause error) *Error {
	err := New(ErrorTypeNetwork, "Request timed out", cause)
	err.Suggestion = "The server is taking too long to respond. Try again in a moment."
	return err
}

// UnauthorizedError creates an error for an action that needs a logged-in viewer
func UnauthorizedError(message string) *Error {
	err := New(ErrorTypeUnauthorized, message, nil)
	err.StatusCode = http.StatusUnauthorized
	err.Suggestion = "Log in with 'vaultfeed auth login' and try again."
	return err
}

// ForbiddenError creates an error for an action the viewer is not permitted to take
func ForbiddenError(message string) *Error {
	err := New(ErrorTypeUnauthorized, message, nil)
	err.StatusCode = http.StatusForbidden
	err.Suggestion = "Only the author or the post owner can do this."
	return err
}

// ValidationError creates a validation error
func ValidationError(field, reason string) *Error {
	return New(ErrorTypeValidation, fmt.Sprintf("Validation error: %s - %s", field, reason), nil)
}

// NotFoundError creates a not found error
func NotFoundError(resourceType, identifier string) *Error {
	err := New(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", resourceType, identifier), nil)
	err.StatusCode = http.StatusNotFound
	return err
}

// ServerError creates a server error
func ServerError(cause error) *Error {
	err := New(ErrorTypeServer, "Server error", cause)
	err.Suggestion = "The server encountered an error. Try again in a few moments."
	return err
}

// statusCoder is satisfied by API errors that carry an HTTP status
type statusCoder interface {
	HTTPStatus() int
}

// Categorize converts a standard error into an *Error
func Categorize(err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return fromStatus(sc.HTTPStatus(), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError(err)
	}
	if errors.Is(err, context.Canceled) {
		return NetworkError("Request was cancelled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return TimeoutError(err)
		}
		return NetworkError("Could not reach the server", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NetworkError("Could not reach the server", err)
	}

	if strings.Contains(err.Error(), "connection refused") {
		return NetworkError("Could not connect to server. Make sure it's running.", err)
	}

	return New(ErrorTypeUnknown, err.Error(), err)
}

func fromStatus(status int, cause error) *Error {
	var out *Error
	switch {
	case status == http.StatusUnauthorized:
		out = UnauthorizedError("You need to be logged in")
	case status == http.StatusForbidden:
		out = ForbiddenError("You don't have permission to perform this action")
	case status == http.StatusNotFound:
		out = NotFoundError("Resource", "requested item")
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		out = New(ErrorTypeValidation, "The server rejected the request", nil)
	case status >= http.StatusInternalServerError:
		out = ServerError(nil)
	default:
		out = New(ErrorTypeUnknown, fmt.Sprintf("Unexpected response status %d", status), nil)
	}
	out.Cause = cause
	out.StatusCode = status
	return out
}

// IsType reports whether err categorizes as the given type
func IsType(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	return Categorize(err).Type == t
}

// FormatError returns a user-friendly error message
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	e := Categorize(err)
	var sb strings.Builder

	sb.WriteString("Error")
	if e.Type != ErrorTypeUnknown {
		sb.WriteString(" (")
		sb.WriteString(string(e.Type))
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	sb.WriteString("\n")

	if e.HasSuggestion() {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(e.Suggestion)
		sb.WriteString("\n")
	}

	return sb.String()
}
