package repository

import (
	"errors"

	"github.com/dhughes/home-server-infrastructure/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	// ErrLastAdmin guards the invariant that at least one admin record
	// exists at all times.
	ErrLastAdmin = errors.New("operation would remove the last admin")
)

// UserRepository is the credential store. Implementations must persist
// atomically: a concurrent reader never observes a partially written store.
type UserRepository interface {
	Get(username string) (*domain.User, error)
	// Put inserts or overwrites a record.
	Put(user *domain.User) error
	// SetRole changes a record's role, failing with ErrLastAdmin when it
	// would demote the sole remaining admin. The check and the write
	// happen under the store lock.
	SetRole(username string, role domain.Role) error
	// Delete removes a record, failing with ErrLastAdmin when the record
	// is the sole remaining admin.
	Delete(username string) error
	// List returns all records ordered by username.
	List() ([]*domain.User, error)
	// CountAdmins reports how many records hold the admin role.
	CountAdmins() (int, error)
}
