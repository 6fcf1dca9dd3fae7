package jsonfile

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhughes/home-server-infrastructure/internal/domain"
	"github.com/dhughes/home-server-infrastructure/internal/repository"
)

// tokenBytes gives 256 bits of entropy per bearer token.
const tokenBytes = 32

// SessionStore is a file-backed session store. Records are keyed by the
// SHA-256 hex of the bearer token, so a leaked store file alone cannot be
// replayed as a cookie. Same locking and atomic-rewrite discipline as
// UserStore.
type SessionStore struct {
	mu       sync.RWMutex
	path     string
	sessions map[string]*domain.Session
	logger   *zap.Logger
}

// NewSessionStore loads the store from path. A missing file is an empty
// store, not an error. Expired records found at load time are dropped.
func NewSessionStore(path string, logger *zap.Logger) (*SessionStore, error) {
	s := &SessionStore{
		path:     path,
		sessions: make(map[string]*domain.Session),
		logger:   logger,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First boot, nothing to load.
	case err != nil:
		return nil, fmt.Errorf("failed to read session store: %w", err)
	default:
		if err := json.Unmarshal(data, &s.sessions); err != nil {
			return nil, fmt.Errorf("failed to parse session store %s: %w", path, err)
		}
		if dropped := s.dropExpiredLocked(time.Now()); dropped > 0 {
			if err := s.persist(); err != nil {
				return nil, err
			}
			logger.Info("dropped expired sessions at startup", zap.Int("count", dropped))
		}
	}

	return s, nil
}

// hashToken creates the SHA-256 hex digest used as the storage key.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// newToken draws a fresh bearer token from the crypto random source.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// persist rewrites the store file. Caller must hold the write lock.
func (s *SessionStore) persist() error {
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session store: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to persist session store: %w", err)
	}
	return nil
}

// Create issues a session for username. The token is returned only after the
// record is durably on disk, so a cookie can never outlive its record.
// The username is copied before it is retained: callers hand in strings
// backed by request buffers that fasthttp reuses once the request ends.
func (s *SessionStore) Create(username string, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.New(),
		Username:  strings.Clone(username),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := hashToken(token)
	s.sessions[key] = session
	if err := s.persist(); err != nil {
		delete(s.sessions, key)
		return "", err
	}

	s.logger.Debug("session created",
		zap.String("session_id", session.ID.String()),
		zap.String("username", username),
		zap.Time("expires_at", session.ExpiresAt),
	)
	return token, nil
}

// Get resolves a token. Expired records are removed lazily and reported as
// not found, indistinguishable from a token that never existed.
func (s *SessionStore) Get(token string) (*domain.Session, error) {
	key := hashToken(token)

	s.mu.RLock()
	session, ok := s.sessions[key]
	if ok && !session.Expired(time.Now()) {
		out := *session
		s.mu.RUnlock()
		return &out, nil
	}
	s.mu.RUnlock()

	if !ok {
		return nil, repository.ErrSessionNotFound
	}

	// Lazy expiry: re-check under the write lock before deleting.
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok && session.Expired(time.Now()) {
		delete(s.sessions, key)
		if err := s.persist(); err != nil {
			s.logger.Error("failed to drop expired session", zap.Error(err))
		}
	}
	return nil, repository.ErrSessionNotFound
}

// Revoke removes the session for token. Idempotent.
func (s *SessionStore) Revoke(token string) error {
	key := hashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[key]; !ok {
		return nil
	}
	delete(s.sessions, key)
	return s.persist()
}

// RevokeAllForUser removes every session owned by username. Used when a user
// is deleted, so orphaned sessions cannot linger until expiry.
func (s *SessionStore) RevokeAllForUser(username string) error {
	return s.revokeMatching(username, "")
}

// RevokeOthers removes every session owned by username except keepToken's.
// Used on password change so the rotating session survives while any leaked
// one dies.
func (s *SessionStore) RevokeOthers(username, keepToken string) error {
	return s.revokeMatching(username, hashToken(keepToken))
}

func (s *SessionStore) revokeMatching(username, keepKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, session := range s.sessions {
		if session.Username == username && key != keepKey {
			delete(s.sessions, key)
			removed++
		}
	}
	if removed == 0 {
		return nil
	}

	s.logger.Info("revoked sessions",
		zap.String("username", username),
		zap.Int("count", removed),
	)
	return s.persist()
}

// Sweep drops expired records. Safe to call repeatedly.
func (s *SessionStore) Sweep() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.dropExpiredLocked(time.Now())
	if dropped == 0 {
		return nil
	}

	s.logger.Debug("session sweep", zap.Int("expired", dropped))
	return s.persist()
}

func (s *SessionStore) dropExpiredLocked(now time.Time) int {
	dropped := 0
	for key, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, key)
			dropped++
		}
	}
	return dropped
}

var _ repository.SessionRepository = (*SessionStore)(nil)
