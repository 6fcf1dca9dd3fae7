package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dhughes/home-server-infrastructure/internal/domain"
	"github.com/dhughes/home-server-infrastructure/internal/repository"
	"github.com/dhughes/home-server-infrastructure/pkg/hash"
)

// Custom errors
var (
	// ErrInvalidCredentials is returned for every credential failure,
	// whether the username exists or not. Keeping it uniform prevents
	// username enumeration through the login form.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAnonymous is returned for every way a session can fail to
	// resolve: no cookie, unknown token, expired token, deleted owner.
	ErrAnonymous    = errors.New("not authenticated")
	ErrForbidden    = errors.New("insufficient permissions")
	ErrSelfDelete   = errors.New("cannot delete your own account")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

const MinPasswordLength = 8

type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	sessionTTL  time.Duration
	logger      *zap.Logger

	// dummyHash is verified against when the username does not exist, so
	// a login attempt costs the same argon2 work either way.
	dummyHash string
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	sessionTTL time.Duration,
	logger *zap.Logger,
) (*AuthService, error) {
	dummyHash, err := hash.HashPassword("timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare auth service: %w", err)
	}

	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
		logger:      logger,
		dummyHash:   dummyHash,
	}, nil
}

// Login verifies the credential pair and issues a new session. Multiple
// concurrent sessions per user are allowed; a new login never touches
// existing ones. The token is returned only after the session record is
// durably persisted.
func (s *AuthService) Login(username, password string) (string, error) {
	user, err := s.userRepo.Get(username)
	if err != nil {
		// Burn the same hashing work as a real verification before
		// answering, and answer exactly like a bad password.
		_, _ = hash.VerifyPassword(password, s.dummyHash)
		return "", ErrInvalidCredentials
	}

	valid, err := hash.VerifyPassword(password, user.PasswordHash)
	if err != nil || !valid {
		s.logger.Info("failed login attempt", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	token, err := s.sessionRepo.Create(user.Username, s.sessionTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue session: %w", err)
	}

	s.logger.Info("login", zap.String("username", username))
	return token, nil
}

// Validate resolves a session token to an identity. Every failure mode
// (empty token, unknown token, expired token, owner deleted, storage fault)
// collapses to ErrAnonymous. Storage faults fail closed.
func (s *AuthService) Validate(token string) (*domain.Identity, error) {
	if token == "" {
		return nil, ErrAnonymous
	}

	session, err := s.sessionRepo.Get(token)
	if err != nil {
		return nil, ErrAnonymous
	}

	user, err := s.userRepo.Get(session.Username)
	if err != nil {
		// Owner no longer exists (or the store is unreadable); the
		// session is orphaned and reads as anonymous either way.
		return nil, ErrAnonymous
	}

	return &domain.Identity{
		Username:           user.Username,
		Role:               user.Role,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// Logout revokes the session. Idempotent; revoking a token that is already
// invalid is not an error.
func (s *AuthService) Logout(token string) error {
	return s.sessionRepo.Revoke(token)
}

// ChangePassword verifies the current password, installs the new hash, and
// revokes every other session of that user. The session performing the
// change survives, so a deliberate rotation kills any leaked session without
// logging the owner out.
func (s *AuthService) ChangePassword(token, oldPassword, newPassword string) error {
	session, err := s.sessionRepo.Get(token)
	if err != nil {
		return ErrAnonymous
	}

	user, err := s.userRepo.Get(session.Username)
	if err != nil {
		return ErrAnonymous
	}

	valid, err := hash.VerifyPassword(oldPassword, user.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	newHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	user.PasswordHash = newHash
	user.MustChangePassword = false
	if err := s.userRepo.Put(user); err != nil {
		return fmt.Errorf("failed to store new password: %w", err)
	}

	if err := s.sessionRepo.RevokeOthers(user.Username, token); err != nil {
		return fmt.Errorf("failed to revoke other sessions: %w", err)
	}

	s.logger.Info("password changed", zap.String("username", user.Username))
	return nil
}
