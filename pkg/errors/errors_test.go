package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

type fakeStatusErr struct{ status int }

func (f *fakeStatusErr) Error() string   { return fmt.Sprintf("status %d", f.status) }
func (f *fakeStatusErr) HTTPStatus() int { return f.status }

// TestNew creates and validates an error
func TestNew(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(ErrorTypeValidation, "Test error", cause)

	if err.Type != ErrorTypeValidation {
		t.Errorf("Expected type %s, got %s", ErrorTypeValidation, err.Type)
	}
	if err.Message != "Test error" {
		t.Errorf("Expected message 'Test error', got '%s'", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("Cause not reachable through Unwrap")
	}
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrorTypeValidation, "Test", nil).WithSuggestion("Try something else")

	if !err.HasSuggestion() {
		t.Error("HasSuggestion returned false")
	}
}

func TestCategorize_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusUnauthorized, ErrorTypeUnauthorized},
		{http.StatusForbidden, ErrorTypeUnauthorized},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusUnprocessableEntity, ErrorTypeValidation},
		{http.StatusBadRequest, ErrorTypeValidation},
		{http.StatusBadGateway, ErrorTypeServer},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			got := Categorize(fmt.Errorf("wrapped: %w", &fakeStatusErr{tt.status}))
			if got.Type != tt.want {
				t.Errorf("status %d: expected %s, got %s", tt.status, tt.want, got.Type)
			}
			if got.StatusCode != tt.status {
				t.Errorf("status %d: StatusCode = %d", tt.status, got.StatusCode)
			}
		})
	}
}

func TestCategorize_TimeoutIsNetwork(t *testing.T) {
	got := Categorize(fmt.Errorf("get posts: %w", context.DeadlineExceeded))
	if got.Type != ErrorTypeNetwork {
		t.Errorf("Expected timeout to categorize as network, got %s", got.Type)
	}
}

func TestCategorize_ConnectionRefused(t *testing.T) {
	got := Categorize(errors.New("dial tcp 127.0.0.1:8787: connect: connection refused"))
	if got.Type != ErrorTypeNetwork {
		t.Errorf("Expected network, got %s", got.Type)
	}
}

func TestCategorize_KeepsTypedError(t *testing.T) {
	orig := ValidationError("content", "cannot be empty")
	got := Categorize(fmt.Errorf("submit: %w", orig))
	if got != orig {
		t.Error("Expected the wrapped *Error to be returned as-is")
	}
}

func TestIsType(t *testing.T) {
	if !IsType(ForbiddenError("no"), ErrorTypeUnauthorized) {
		t.Error("Forbidden should be an unauthorized-type error")
	}
	if IsType(nil, ErrorTypeUnknown) {
		t.Error("nil should not match any type")
	}
}

func TestFormatError(t *testing.T) {
	msg := FormatError(UnauthorizedError("Log in to like posts"))
	if !strings.Contains(msg, "unauthorized") || !strings.Contains(msg, "auth login") {
		t.Errorf("Unexpected format: %q", msg)
	}
	if FormatError(nil) != "" {
		t.Error("FormatError(nil) should be empty")
	}
}
