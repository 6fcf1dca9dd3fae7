package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dhughes/home-server-infrastructure/internal/domain"
	"github.com/dhughes/home-server-infrastructure/internal/repository"
	"github.com/dhughes/home-server-infrastructure/pkg/hash"
)

// Bootstrap credentials created on first run with no store file present.
// The account is flagged must_change_password so the placeholder cannot be
// used to reach protected applications.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "changeme"
)

// userRecord is the on-disk shape of one user. Unlike domain.User it carries
// the password hash; the store file is the only place the hash is written.
type userRecord struct {
	PasswordHash       string      `json:"password_hash"`
	Role               domain.Role `json:"role"`
	MustChangePassword bool        `json:"must_change_password,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// UserStore is a file-backed credential store. The whole store is one JSON
// object keyed by username, held in memory and rewritten atomically on every
// mutation. Reads run concurrently; mutations serialize under the write lock.
type UserStore struct {
	mu     sync.RWMutex
	path   string
	users  map[string]userRecord
	logger *zap.Logger
}

// NewUserStore loads the store from path, bootstrapping a default admin
// account when the file does not exist yet.
func NewUserStore(path string, logger *zap.Logger) (*UserStore, error) {
	s := &UserStore{
		path:   path,
		users:  make(map[string]userRecord),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := s.bootstrap(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read user store: %w", err)
	default:
		if err := json.Unmarshal(data, &s.users); err != nil {
			return nil, fmt.Errorf("failed to parse user store %s: %w", path, err)
		}
	}

	return s, nil
}

// bootstrap creates the single default administrator. Only valid at true
// first boot, when no store file exists.
func (s *UserStore) bootstrap() error {
	passwordHash, err := hash.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	s.users[DefaultAdminUsername] = userRecord{
		PasswordHash:       passwordHash,
		Role:               domain.RoleAdmin,
		MustChangePassword: true,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.persist(); err != nil {
		return err
	}

	s.logger.Warn("no user store found, created default admin account; change its password immediately",
		zap.String("username", DefaultAdminUsername),
		zap.String("path", s.path),
	)
	return nil
}

// persist rewrites the store file. Caller must hold the write lock (or be
// the constructor, before the store is shared).
func (s *UserStore) persist() error {
	data, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user store: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to persist user store: %w", err)
	}
	return nil
}

// toDomain builds the domain view of one record. The username is copied so
// the returned user never aliases a caller-owned request buffer.
func (s *UserStore) toDomain(username string, rec userRecord) *domain.User {
	return &domain.User{
		Username:           strings.Clone(username),
		PasswordHash:       rec.PasswordHash,
		Role:               rec.Role,
		MustChangePassword: rec.MustChangePassword,
		CreatedAt:          rec.CreatedAt,
	}
}

// Get retrieves a user by username.
func (s *UserStore) Get(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return s.toDomain(username, rec), nil
}

// Put inserts or overwrites a user record. Strings that end up in the map
// are copied first, since they may be backed by reusable request buffers.
// On persist failure the previous in-memory state is restored, so readers
// never observe a record that was not durably written.
func (s *UserStore) Put(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.Clone(user.Username)
	prev, existed := s.users[username]
	s.users[username] = userRecord{
		PasswordHash:       strings.Clone(user.PasswordHash),
		Role:               domain.Role(strings.Clone(string(user.Role))),
		MustChangePassword: user.MustChangePassword,
		CreatedAt:          user.CreatedAt,
	}
	if err := s.persist(); err != nil {
		if existed {
			s.users[username] = prev
		} else {
			delete(s.users, username)
		}
		return err
	}
	return nil
}

// SetRole changes a user's role, refusing to demote the sole remaining
// admin. Check and write share the lock so two concurrent demotions cannot
// race the invariant away.
func (s *UserStore) SetRole(username string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}

	if rec.Role == domain.RoleAdmin && role != domain.RoleAdmin && s.countAdminsLocked() == 1 {
		return repository.ErrLastAdmin
	}

	prev := rec
	rec.Role = domain.Role(strings.Clone(string(role)))
	s.users[username] = rec
	if err := s.persist(); err != nil {
		s.users[username] = prev
		return err
	}
	return nil
}

// Delete removes a user, refusing to remove the sole remaining admin.
func (s *UserStore) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}

	if rec.Role == domain.RoleAdmin && s.countAdminsLocked() == 1 {
		return repository.ErrLastAdmin
	}

	delete(s.users, username)
	if err := s.persist(); err != nil {
		s.users[strings.Clone(username)] = rec
		return err
	}
	return nil
}

// List returns all users ordered by username.
func (s *UserStore) List() ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*domain.User, 0, len(s.users))
	for username, rec := range s.users {
		users = append(users, s.toDomain(username, rec))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// CountAdmins reports the number of admin records.
func (s *UserStore) CountAdmins() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countAdminsLocked(), nil
}

func (s *UserStore) countAdminsLocked() int {
	count := 0
	for _, rec := range s.users {
		if rec.Role == domain.RoleAdmin {
			count++
		}
	}
	return count
}

var _ repository.UserRepository = (*UserStore)(nil)
