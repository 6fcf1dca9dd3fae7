package handler_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dhughes/home-server-infrastructure/internal/config"
	"github.com/dhughes/home-server-infrastructure/internal/domain"
	"github.com/dhughes/home-server-infrastructure/internal/handler"
	"github.com/dhughes/home-server-infrastructure/internal/handler/middleware"
	"github.com/dhughes/home-server-infrastructure/internal/registry"
	"github.com/dhughes/home-server-infrastructure/internal/repository/jsonfile"
	"github.com/dhughes/home-server-infrastructure/internal/service"
	"github.com/dhughes/home-server-infrastructure/pkg/hash"
	"github.com/dhughes/home-server-infrastructure/pkg/validator"
	"github.com/dhughes/home-server-infrastructure/views"
)

type testEnv struct {
	app          *fiber.App
	cfg          *config.Config
	userStore    *jsonfile.UserStore
	sessionStore *jsonfile.SessionStore
}

// newTestEnv wires the full gateway against temp-dir stores, the same way
// cmd/main.go does.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:        "0",
			Environment: "test",
			SiteName:    "test.local",
		},
		Storage: config.StorageConfig{
			DataDir:      dir,
			UsersFile:    filepath.Join(dir, "users.json"),
			SessionsFile: filepath.Join(dir, "sessions.json"),
		},
		Session: config.SessionConfig{
			CookieName:    "session",
			TTL:           time.Hour,
			SweepInterval: time.Hour,
		},
		Registry: config.RegistryConfig{
			AppsDir: filepath.Join(dir, "apps"),
		},
	}
	require.NoError(t, os.MkdirAll(cfg.Registry.AppsDir, 0o755))

	userStore, err := jsonfile.NewUserStore(cfg.Storage.UsersFile, logger)
	require.NoError(t, err)
	sessionStore, err := jsonfile.NewSessionStore(cfg.Storage.SessionsFile, logger)
	require.NoError(t, err)

	validate := validator.New()
	appRegistry := registry.New(cfg.Registry.AppsDir, validate, logger)

	authService, err := service.NewAuthService(userStore, sessionStore, cfg.Session.TTL, logger)
	require.NoError(t, err)
	userService := service.NewUserService(userStore, sessionStore, logger)

	engine := html.NewFileSystem(http.FS(views.FS), ".html")
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Views:                 engine,
	})
	app.Use(middleware.RecoveryMiddleware(logger))

	handler.SetupRoutes(
		app,
		handler.NewVerifyHandler(authService, cfg.Session.CookieName),
		handler.NewAuthHandler(authService, validate, cfg, logger),
		handler.NewIndexHandler(appRegistry, cfg),
		handler.NewAccountHandler(authService, validate, cfg, logger),
		handler.NewAdminHandler(userService, validate, cfg, logger),
		handler.NewAppImageHandler(appRegistry, logger),
		handler.NewHealthHandler(),
		middleware.SessionMiddleware(authService, cfg.Session.CookieName),
		middleware.RequireAuth(),
		middleware.RequireAdmin(),
	)

	return &testEnv{
		app:          app,
		cfg:          cfg,
		userStore:    userStore,
		sessionStore: sessionStore,
	}
}

// addUser inserts a user directly into the store, bypassing the bootstrap
// placeholder flow.
func (e *testEnv) addUser(t *testing.T, username, password string, role domain.Role) {
	t.Helper()
	passwordHash, err := hash.HashPassword(password)
	require.NoError(t, err)
	require.NoError(t, e.userStore.Put(&domain.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}))
}

func (e *testEnv) get(t *testing.T, path, sessionToken string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: e.cfg.Session.CookieName, Value: sessionToken})
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) postForm(t *testing.T, path, sessionToken string, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: e.cfg.Session.CookieName, Value: sessionToken})
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// login posts the login form and returns the issued session token.
func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.postForm(t, "/login", "", url.Values{
		"username": {username},
		"password": {password},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == e.cfg.Session.CookieName && cookie.Value != "" {
			return cookie.Value
		}
	}
	t.Fatal("no session cookie issued")
	return ""
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
