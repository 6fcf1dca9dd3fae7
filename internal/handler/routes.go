package handler

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes registers all routes. /health and /verify are registered
// before the session middleware: /verify resolves the cookie itself and must
// stay as cheap as possible, since the proxy calls it on every request to a
// protected app.
func SetupRoutes(
	app *fiber.App,
	verifyHandler *VerifyHandler,
	authHandler *AuthHandler,
	indexHandler *IndexHandler,
	accountHandler *AccountHandler,
	adminHandler *AdminHandler,
	appImageHandler *AppImageHandler,
	healthHandler *HealthHandler,
	sessionMiddleware fiber.Handler,
	requireAuth fiber.Handler,
	requireAdmin fiber.Handler,
) {
	// Hot path and probes (no session resolution)
	app.Get("/health", healthHandler.Health)
	app.Get("/verify", verifyHandler.Verify)

	app.Use(sessionMiddleware)

	// Public pages
	app.Get("/", indexHandler.Index)
	app.Get("/login", authHandler.ShowLogin)
	app.Post("/login", authHandler.Login)
	app.Post("/logout", authHandler.Logout)
	app.Get("/logout", authHandler.Logout)
	app.Get("/app-image/:app", appImageHandler.AppImage)

	// Self-service (any authenticated user)
	account := app.Group("/account", requireAuth)
	account.Get("/", accountHandler.ShowAccount)
	account.Post("/", accountHandler.ChangePassword)

	// Admin surface
	admin := app.Group("/admin", requireAuth, requireAdmin)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Post("/users/add", adminHandler.CreateUser)
	admin.Post("/users/delete", adminHandler.DeleteUser)
	admin.Post("/users/role", adminHandler.SetRole)
}
