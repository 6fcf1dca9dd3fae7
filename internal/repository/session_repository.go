package repository

import (
	"errors"
	"time"

	"github.com/dhughes/home-server-infrastructure/internal/domain"
)

// ErrSessionNotFound covers every way a token can fail to resolve: unknown,
// expired, or revoked. Callers must not be able to tell these apart.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository is the session store. Tokens are opaque bearer secrets;
// implementations must key records by a one-way hash of the token so the raw
// value never reaches disk.
type SessionRepository interface {
	// Create issues a new session for username with the given TTL and
	// returns the bearer token. The record is durably persisted before
	// the token is returned.
	Create(username string, ttl time.Duration) (string, error)
	// Get resolves a token to its session, returning ErrSessionNotFound
	// for unknown and expired tokens alike.
	Get(token string) (*domain.Session, error)
	// Revoke removes the session for token. Revoking an unknown or
	// already-revoked token is not an error.
	Revoke(token string) error
	// RevokeAllForUser removes every session owned by username.
	RevokeAllForUser(username string) error
	// RevokeOthers removes every session owned by username except the one
	// identified by keepToken.
	RevokeOthers(username, keepToken string) error
	// Sweep drops expired records. Idempotent, safe to run on a ticker.
	Sweep() error
}
