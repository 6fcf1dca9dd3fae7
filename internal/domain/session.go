package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is one issued login session. Sessions are immutable once created:
// a password change or logout revokes them, nothing updates them in place.
// ID is a log-safe identifier; the bearer token itself is never persisted or
// logged, only its hash keys the store.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session's absolute expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
