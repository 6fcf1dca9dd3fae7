package handler_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppImage_ServesDeclaredImage(t *testing.T) {
	env := newTestEnv(t)
	env.writeManifest(t, "lottery", `{"name":"Lottery","path":"/lottery","port":9001,"public":true,"image":"logo.png"}`)
	imagePath := filepath.Join(env.cfg.Registry.AppsDir, "lottery", "logo.png")
	require.NoError(t, os.WriteFile(imagePath, []byte("png-bytes"), 0o644))

	resp := env.get(t, "/app-image/lottery", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "png-bytes", body(t, resp))
}

func TestAppImage_UnknownApp(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/app-image/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	// No filesystem detail leaks.
	assert.NotContains(t, body(t, resp), env.cfg.Registry.AppsDir)
}

func TestAppImage_NoImageDeclared(t *testing.T) {
	env := newTestEnv(t)
	env.writeManifest(t, "lottery", `{"name":"Lottery","path":"/lottery","port":9001,"public":true}`)

	resp := env.get(t, "/app-image/lottery", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAppImage_TraversalRejected(t *testing.T) {
	env := newTestEnv(t)

	// A manifest that points its image outside the app directory.
	secret := filepath.Join(env.cfg.Registry.AppsDir, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))
	env.writeManifest(t, "sneaky", `{"name":"Sneaky","path":"/sneaky","port":9001,"public":true,"image":"../secret.txt"}`)

	resp := env.get(t, "/app-image/sneaky", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, body(t, resp), "secret")
}

func TestAppImage_TraversalInAppName(t *testing.T) {
	env := newTestEnv(t)
	env.writeManifest(t, "lottery", `{"name":"Lottery","path":"/lottery","port":9001,"public":true,"image":"logo.png"}`)

	resp := env.get(t, "/app-image/..%2Flottery", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
