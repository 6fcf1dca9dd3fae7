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

const MinUsernameLength = 3

// UserService covers the admin-only user management surface. Every method
// re-checks the actor's role even though the routes are already gated by
// middleware; a service call from anywhere else gets the same answer.
type UserService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	logger      *zap.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

// ListUsers returns all user records ordered by username. Password hashes
// never leave the repository boundary in any rendered form (the field is
// excluded from JSON and the templates only touch username/role).
func (s *UserService) ListUsers(actor *domain.Identity) ([]*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.userRepo.List()
}

// CreateUser adds a new account with the given role.
func (s *UserService) CreateUser(actor *domain.Identity, username, password string, role domain.Role) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	if len(username) < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	if _, err := s.userRepo.Get(username); err == nil {
		return repository.ErrUserExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("failed to check for existing user: %w", err)
	}

	passwordHash, err := hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.userRepo.Put(user); err != nil {
		return err
	}

	s.logger.Info("user created",
		zap.String("actor", actor.Username),
		zap.String("username", username),
		zap.String("role", string(role)),
	)
	return nil
}

// SetRole changes a user's role. The store enforces the last-admin invariant
// atomically, so two concurrent demotions cannot both succeed.
func (s *UserService) SetRole(actor *domain.Identity, target string, role domain.Role) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	if err := s.userRepo.SetRole(target, role); err != nil {
		return err
	}

	s.logger.Info("role changed",
		zap.String("actor", actor.Username),
		zap.String("username", target),
		zap.String("role", string(role)),
	)
	return nil
}

// DeleteUser removes an account and revokes all of its sessions, so a
// deleted user's cookie dies with the record rather than at expiry.
func (s *UserService) DeleteUser(actor *domain.Identity, target string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if target == actor.Username {
		return ErrSelfDelete
	}

	if err := s.userRepo.Delete(target); err != nil {
		return err
	}

	if err := s.sessionRepo.RevokeAllForUser(target); err != nil {
		return fmt.Errorf("failed to revoke sessions of deleted user: %w", err)
	}

	s.logger.Info("user deleted",
		zap.String("actor", actor.Username),
		zap.String("username", target),
	)
	return nil
}
