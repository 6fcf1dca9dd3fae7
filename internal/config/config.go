package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Session  SessionConfig
	Registry RegistryConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	SiteName     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StorageConfig struct {
	DataDir      string
	UsersFile    string
	SessionsFile string
}

type SessionConfig struct {
	CookieName    string
	TTL           time.Duration
	SweepInterval time.Duration
}

type RegistryConfig struct {
	AppsDir string
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8000"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			SiteName:     getEnv("SITE_NAME", "doughughes.net"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			DataDir:      dataDir,
			UsersFile:    getEnv("USERS_FILE", filepath.Join(dataDir, "users.json")),
			SessionsFile: getEnv("SESSIONS_FILE", filepath.Join(dataDir, "sessions.json")),
		},
		Session: SessionConfig{
			CookieName:    getEnv("SESSION_COOKIE_NAME", "session"),
			TTL:           getDurationEnv("SESSION_TTL", 30*24*time.Hour),
			SweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", time.Hour),
		},
		Registry: RegistryConfig{
			AppsDir: getEnv("APPS_DIR", expandHome("~/apps")),
		},
	}

	return cfg, nil
}

// IsProduction gates cookie Secure flags; behind the TLS-terminating proxy
// the gateway itself only ever sees plain HTTP.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
