package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dhughes/home-server-infrastructure/internal/domain"
	"github.com/dhughes/home-server-infrastructure/internal/repository"
	"github.com/dhughes/home-server-infrastructure/pkg/hash"
)

func newUserStore(t *testing.T) (*UserStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	store, err := NewUserStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	return store, path
}

func testUser(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	passwordHash, err := hash.HashPassword("some password")
	require.NoError(t, err)
	return &domain.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestNewUserStore_BootstrapsDefaultAdmin(t *testing.T) {
	store, path := newUserStore(t)

	admin, err := store.Get(DefaultAdminUsername)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.True(t, admin.MustChangePassword)

	ok, err := hash.VerifyPassword(DefaultAdminPassword, admin.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	// The bootstrap record must already be on disk.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]userRecord
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Contains(t, onDisk, DefaultAdminUsername)
}

func TestUserStore_PutGetDelete(t *testing.T) {
	store, _ := newUserStore(t)

	require.NoError(t, store.Put(testUser(t, "doug", domain.RoleUser)))

	got, err := store.Get("doug")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, got.Role)

	require.NoError(t, store.Delete("doug"))
	_, err = store.Get("doug")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	assert.ErrorIs(t, store.Delete("doug"), repository.ErrUserNotFound)
}

func TestUserStore_GetIsCaseSensitive(t *testing.T) {
	store, _ := newUserStore(t)
	require.NoError(t, store.Put(testUser(t, "Doug", domain.RoleUser)))

	_, err := store.Get("doug")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserStore_DeleteLastAdminRefused(t *testing.T) {
	store, _ := newUserStore(t)

	err := store.Delete(DefaultAdminUsername)
	assert.ErrorIs(t, err, repository.ErrLastAdmin)

	// With a second admin present the first becomes deletable.
	require.NoError(t, store.Put(testUser(t, "backup", domain.RoleAdmin)))
	require.NoError(t, store.Delete(DefaultAdminUsername))

	// And now "backup" is the last admin again.
	assert.ErrorIs(t, store.Delete("backup"), repository.ErrLastAdmin)
}

func TestUserStore_SetRole(t *testing.T) {
	store, _ := newUserStore(t)
	require.NoError(t, store.Put(testUser(t, "doug", domain.RoleUser)))

	require.NoError(t, store.SetRole("doug", domain.RoleAdmin))
	got, err := store.Get("doug")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	assert.ErrorIs(t, store.SetRole("ghost", domain.RoleUser), repository.ErrUserNotFound)
}

func TestUserStore_SetRoleLastAdminRefused(t *testing.T) {
	store, _ := newUserStore(t)

	err := store.SetRole(DefaultAdminUsername, domain.RoleUser)
	assert.ErrorIs(t, err, repository.ErrLastAdmin)

	// The record must be unchanged after the refused demotion.
	admin, err := store.Get(DefaultAdminUsername)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	// Re-asserting an admin's existing role is fine.
	require.NoError(t, store.SetRole(DefaultAdminUsername, domain.RoleAdmin))
}

func TestUserStore_ListOrderedByUsername(t *testing.T) {
	store, _ := newUserStore(t)
	require.NoError(t, store.Put(testUser(t, "zoe", domain.RoleUser)))
	require.NoError(t, store.Put(testUser(t, "bob", domain.RoleUser)))

	users, err := store.List()
	require.NoError(t, err)
	require.Len(t, users, 3) // admin + two

	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
	assert.Equal(t, "zoe", users[2].Username)
}

func TestUserStore_PersistsAcrossReopen(t *testing.T) {
	store, path := newUserStore(t)
	require.NoError(t, store.Put(testUser(t, "doug", domain.RoleUser)))

	reopened, err := NewUserStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	got, err := reopened.Get("doug")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, got.Role)

	count, err := reopened.CountAdmins()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// Usernames and roles arrive backed by fasthttp request buffers, which are
// reused once the request ends. A retained record must not alias them.
func TestUserStore_PutCopiesRequestBackedStrings(t *testing.T) {
	store, _ := newUserStore(t)

	nameBuf := []byte("doug")
	roleBuf := []byte("user")
	user := testUser(t, unsafe.String(&nameBuf[0], len(nameBuf)), domain.RoleUser)
	user.Role = domain.Role(unsafe.String(&roleBuf[0], len(roleBuf)))
	require.NoError(t, store.Put(user))

	copy(nameBuf, "mutt")
	copy(roleBuf, "junk")

	got, err := store.Get("doug")
	require.NoError(t, err)
	assert.Equal(t, "doug", got.Username)
	assert.Equal(t, domain.RoleUser, got.Role)

	users, err := store.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "doug", users[1].Username)
}

func TestUserStore_SetRoleCopiesRole(t *testing.T) {
	store, _ := newUserStore(t)
	require.NoError(t, store.Put(testUser(t, "doug", domain.RoleUser)))

	roleBuf := []byte("admin")
	require.NoError(t, store.SetRole("doug", domain.Role(unsafe.String(&roleBuf[0], len(roleBuf)))))
	copy(roleBuf, "guest")

	got, err := store.Get("doug")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
}

func TestUserStore_RollsBackOnPersistFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.Mkdir(dir, 0o700))
	store, err := NewUserStore(filepath.Join(dir, "users.json"), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, store.Put(testUser(t, "doug", domain.RoleUser)))

	// With the directory gone the atomic rewrite cannot create its temp file.
	require.NoError(t, os.RemoveAll(dir))

	require.Error(t, store.Put(testUser(t, "ghost", domain.RoleUser)))
	_, err = store.Get("ghost")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	require.Error(t, store.SetRole("doug", domain.RoleAdmin))
	got, err := store.Get("doug")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, got.Role)

	require.Error(t, store.Delete("doug"))
	_, err = store.Get("doug")
	assert.NoError(t, err)
}

func TestUserStore_NeverStoresPlaintext(t *testing.T) {
	store, path := newUserStore(t)

	passwordHash, err := hash.HashPassword("hunter2secret")
	require.NoError(t, err)
	require.NoError(t, store.Put(&domain.User{
		Username:     "doug",
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2secret")
	assert.NotContains(t, string(data), DefaultAdminPassword)
}
