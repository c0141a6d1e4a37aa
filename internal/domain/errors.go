package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFilter signals a filter value the engine cannot use.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrSearchBackend signals a transport or parse failure of the search backend.
	ErrSearchBackend = errors.New("search backend error")
	// ErrCircuitOpen signals that calls to the search backend are short-circuited.
	ErrCircuitOpen = errors.New("search backend unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrSessionNotFound signals an unknown or expired session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions signals that the session limit is reached.
	ErrTooManySessions = errors.New("too many sessions")
	// ErrSessionClosed signals a command sent to a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// BackendStatusError wraps ErrSearchBackend with the HTTP status returned by the backend.
type BackendStatusError struct {
	Status int
	Reason string
}

func (e *BackendStatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: status %d", ErrSearchBackend.Error(), e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrSearchBackend.Error(), e.Status, e.Reason)
}

func (e *BackendStatusError) Unwrap() error { return ErrSearchBackend }

// NewBackendStatus creates a backend status error.
func NewBackendStatus(status int, reason string) error {
	return &BackendStatusError{Status: status, Reason: reason}
}
