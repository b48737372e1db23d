package session

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long a session survives without a write.
const DefaultTTL = 4 * time.Hour

// ErrNotFound is returned by Store.Get when no live session exists for the
// conversation identity.
var ErrNotFound = errors.New("session: not found")

// Store persists sessions keyed by conversation identity. Every Save
// refreshes the TTL; expiry is the only teardown.
type Store interface {
	// Get returns the live session for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Save writes the session and refreshes its TTL.
	Save(ctx context.Context, s *Session) error

	// Close releases store resources.
	Close() error
}

// GetOrCreate loads the session for id, creating an empty one when none
// exists or the previous one has expired.
func GetOrCreate(ctx context.Context, store Store, id string) (*Session, error) {
	s, err := store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return New(id), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
