package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"github.com/dhughes/home-server-infrastructure/internal/config"
	"github.com/dhughes/home-server-infrastructure/internal/handler"
	"github.com/dhughes/home-server-infrastructure/internal/handler/middleware"
	"github.com/dhughes/home-server-infrastructure/internal/registry"
	"github.com/dhughes/home-server-infrastructure/internal/repository/jsonfile"
	"github.com/dhughes/home-server-infrastructure/internal/service"
	"github.com/dhughes/home-server-infrastructure/pkg/validator"
	"github.com/dhughes/home-server-infrastructure/views"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("gateway exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// Initialize stores
	userStore, err := jsonfile.NewUserStore(cfg.Storage.UsersFile, logger)
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}
	sessionStore, err := jsonfile.NewSessionStore(cfg.Storage.SessionsFile, logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	logger.Info("stores loaded",
		zap.String("users", cfg.Storage.UsersFile),
		zap.String("sessions", cfg.Storage.SessionsFile),
	)

	// Initialize validator and registry
	validate := validator.New()
	appRegistry := registry.New(cfg.Registry.AppsDir, validate, logger)

	// Initialize services
	authService, err := service.NewAuthService(userStore, sessionStore, cfg.Session.TTL, logger)
	if err != nil {
		return err
	}
	userService := service.NewUserService(userStore, sessionStore, logger)

	// Initialize handlers
	verifyHandler := handler.NewVerifyHandler(authService, cfg.Session.CookieName)
	authHandler := handler.NewAuthHandler(authService, validate, cfg, logger)
	indexHandler := handler.NewIndexHandler(appRegistry, cfg)
	accountHandler := handler.NewAccountHandler(authService, validate, cfg, logger)
	adminHandler := handler.NewAdminHandler(userService, validate, cfg, logger)
	appImageHandler := handler.NewAppImageHandler(appRegistry, logger)
	healthHandler := handler.NewHealthHandler()

	// Create Fiber app with embedded templates
	engine := html.NewFileSystem(http.FS(views.FS), ".html")
	app := fiber.New(fiber.Config{
		AppName:               "homegate",
		DisableStartupMessage: true,
		Views:                 engine,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	})

	// Global middlewares
	app.Use(middleware.RecoveryMiddleware(logger))
	app.Use(middleware.LoggerMiddleware(logger))

	// Setup routes
	handler.SetupRoutes(
		app,
		verifyHandler,
		authHandler,
		indexHandler,
		accountHandler,
		adminHandler,
		appImageHandler,
		healthHandler,
		middleware.SessionMiddleware(authService, cfg.Session.CookieName),
		middleware.RequireAuth(),
		middleware.RequireAdmin(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Periodic session expiry sweep, decoupled from request handling
	go sweepLoop(ctx, sessionStore, cfg.Session.SweepInterval, logger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("gateway listening",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := app.Listen(addr); err != nil {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// sweepLoop drops expired sessions on a fixed interval until ctx is done.
// Expiry is also enforced lazily at validation time; the sweep just keeps
// the store file from accumulating dead records.
func sweepLoop(ctx context.Context, store *jsonfile.SessionStore, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Sweep(); err != nil {
				logger.Error("session sweep failed", zap.Error(err))
			}
		}
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
