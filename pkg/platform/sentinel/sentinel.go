package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so callers can branch without knowing the backend:
// - ErrNotFound: the key has no entry, or the entry expired
// - ErrUnavailable: backend temporarily unreachable
// - ErrCircuitOpen: calls short-circuited by an open breaker
//
// A postal code unknown to the address service is not an infrastructure fact;
// that outcome is models.ErrNotFound in the address package.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrCircuitOpen = errors.New("circuit open")
)
