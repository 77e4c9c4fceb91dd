// Package session defines ephemeral per-session storage. Sandboxed sales stash
// their invoice payload here instead of the durable ledger, keyed by the
// caller's session, so the invoice can still be served back within the same
// session and nowhere else.
package session

import (
	"context"
	"time"
)

// Store is a namespaced key-value store with per-entry expiry. Entries are
// scoped to a session: one session never sees another's values.
type Store interface {
	// Put stores value under (sessionID, key), replacing any previous value.
	// A zero ttl means the backend's default expiry.
	Put(ctx context.Context, sessionID, key string, value []byte, ttl time.Duration) error

	// Get returns the value under (sessionID, key), or ErrSessionMiss from the
	// root package when absent or expired.
	Get(ctx context.Context, sessionID, key string) ([]byte, error)

	// Delete removes the value under (sessionID, key). Deleting an absent key
	// is not an error.
	Delete(ctx context.Context, sessionID, key string) error

	// Close releases backend resources.
	Close() error
}
