package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireAdmin gates a route to admin users. Must run after SessionMiddleware
// and RequireAuth; an authenticated non-admin gets a bare 403 with no
// operational detail.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := Identity(c)
		if identity == nil {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		if !identity.IsAdmin() {
			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}

		return c.Next()
	}
}
