package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrUnauthorized is returned when the backend rejects the request
	// with a 401 and the pipeline could not recover.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionInvalidated is returned when an authorization failure is
	// irrecoverable: no refresh token, or the refresh call itself failed.
	// The session has been cleared when this error is observed.
	ErrSessionInvalidated = errors.New("session invalidated")
)

// APIError is returned for any non-2xx HTTP response from the backend.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Message is the backend's error message, when it sent one.
	Message string
	// RequestID is the correlation ID sent with the request.
	RequestID string
}

// Error returns a human-readable description of the backend failure.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Is reports whether this error matches the target error.
// A 401 response matches ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// SessionInvalidatedError wraps the original authorization failure after
// the recovery path has given up and cleared the session. The caller
// should treat it as "signed out"; the application shell receives the
// same event through the invalidation callback and owns navigation back
// to the login view.
type SessionInvalidatedError struct {
	// Cause is the original authorization failure.
	Cause error
}

// Error returns a human-readable description.
func (e *SessionInvalidatedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session invalidated: %v", e.Cause)
	}
	return "session invalidated"
}

// Unwrap returns the original authorization failure.
func (e *SessionInvalidatedError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrSessionInvalidated).
func (e *SessionInvalidatedError) Is(target error) bool {
	return target == ErrSessionInvalidated
}
