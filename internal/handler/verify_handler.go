package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dhughes/home-server-infrastructure/internal/service"
)

// VerifyHandler answers the reverse proxy's forward_auth subrequest. It runs
// on every request to a protected app, so it reads the cookie itself and
// touches nothing but the session and user stores. No registry, no
// templates, no side effects.
type VerifyHandler struct {
	authService *service.AuthService
	cookieName  string
}

func NewVerifyHandler(authService *service.AuthService, cookieName string) *VerifyHandler {
	return &VerifyHandler{
		authService: authService,
		cookieName:  cookieName,
	}
}

// Verify handles the allow/deny decision.
// GET /verify -> 200 with X-Auth-* headers, or 401 with no body.
func (h *VerifyHandler) Verify(c *fiber.Ctx) error {
	identity, err := h.authService.Validate(c.Cookies(h.cookieName))
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	// A bootstrap placeholder password does not unlock protected apps.
	if identity.MustChangePassword {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	c.Set("X-Auth-User", identity.Username)
	c.Set("X-Auth-Role", string(identity.Role))
	return c.SendStatus(fiber.StatusOK)
}
