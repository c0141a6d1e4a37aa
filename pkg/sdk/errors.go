package picmap

import (
	"errors"

	"github.com/kailas-cloud/picmap/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound        = domain.ErrNotFound
	ErrInvalidFilter   = domain.ErrInvalidFilter
	ErrSearchBackend   = domain.ErrSearchBackend
	ErrCircuitOpen     = domain.ErrCircuitOpen
	ErrRateLimited     = domain.ErrRateLimited
	ErrSessionNotFound = domain.ErrSessionNotFound
	ErrTooManySessions = domain.ErrTooManySessions
	ErrSessionClosed   = domain.ErrSessionClosed
)

// ErrNoStore is returned by operations that need the key-value store when
// the client was created without WithValkey or WithRedis.
var ErrNoStore = errors.New("picmap: key-value store not configured")
