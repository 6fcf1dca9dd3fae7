package middleware

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/dhughes/home-server-infrastructure/internal/domain"
	"github.com/dhughes/home-server-infrastructure/internal/service"
)

// Locals keys set by SessionMiddleware for downstream handlers.
const (
	LocalsIdentity = "identity"
	LocalsToken    = "session_token"
)

// SessionMiddleware resolves the session cookie to an identity and stores it
// in fiber.Locals. Anonymous requests pass through with no identity set; the
// route decides whether that is acceptable.
func SessionMiddleware(authService *service.AuthService, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			return c.Next()
		}

		identity, err := authService.Validate(token)
		if err != nil {
			// Invalid, expired, or orphaned: indistinguishable from
			// no cookie at all.
			return c.Next()
		}

		c.Locals(LocalsIdentity, identity)
		c.Locals(LocalsToken, token)
		return c.Next()
	}
}

// Identity returns the resolved identity for the request, or nil when the
// caller is anonymous.
func Identity(c *fiber.Ctx) *domain.Identity {
	identity, _ := c.Locals(LocalsIdentity).(*domain.Identity)
	return identity
}

// Token returns the raw session token for the request, or "" when anonymous.
func Token(c *fiber.Ctx) string {
	token, _ := c.Locals(LocalsToken).(string)
	return token
}

// RequireAuth redirects anonymous callers to the login form, preserving the
// requested path and query string. Users still on the bootstrap placeholder
// password are pinned to the account page until they rotate it.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := Identity(c)
		if identity == nil {
			return c.Redirect("/login?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
		}

		if identity.MustChangePassword && c.Path() != "/account" {
			return c.Redirect("/account", fiber.StatusFound)
		}

		return c.Next()
	}
}
