package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dhughes/home-server-infrastructure/internal/config"
	"github.com/dhughes/home-server-infrastructure/internal/handler/middleware"
	"github.com/dhughes/home-server-infrastructure/internal/service"
	"github.com/dhughes/home-server-infrastructure/pkg/validator"
)

// genericLoginError is the only message the login form ever shows. It never
// says whether the username or the password was wrong.
const genericLoginError = "Invalid username or password"

type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validator
	cfg         *config.Config
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, validate *validator.Validator, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validate,
		cfg:         cfg,
		logger:      logger,
	}
}

type loginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

func (h *AuthHandler) renderLogin(c *fiber.Ctx, status int, next, errMsg string) error {
	return c.Status(status).Render("login", fiber.Map{
		"Title":    "Login",
		"SiteName": h.cfg.Server.SiteName,
		"Next":     safeNextPath(next),
		"Error":    errMsg,
	}, "layout")
}

// ShowLogin renders the login form.
// GET /login
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	if middleware.Identity(c) != nil {
		return c.Redirect("/", fiber.StatusFound)
	}
	return h.renderLogin(c, fiber.StatusOK, c.Query("next"), "")
}

// Login authenticates the form credentials and issues the session cookie.
// The cookie is set only after the session record is durably persisted.
// POST /login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return h.renderLogin(c, fiber.StatusBadRequest, "", genericLoginError)
	}

	if err := h.validator.Validate(req); err != nil {
		return h.renderLogin(c, fiber.StatusBadRequest, req.Next, err.Error())
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return h.renderLogin(c, fiber.StatusUnauthorized, req.Next, genericLoginError)
		}
		h.logger.Error("login failed", zap.Error(err))
		return h.renderLogin(c, fiber.StatusInternalServerError, req.Next, "Something went wrong, please try again")
	}

	setSessionCookie(c, h.cfg.Session.CookieName, token, h.cfg.Session.TTL, h.cfg.Server.IsProduction())
	return c.Redirect(safeNextPath(req.Next), fiber.StatusFound)
}

// Logout revokes the session and clears the cookie. Safe to call without a
// valid session; revocation is idempotent.
// POST /logout (GET also accepted for plain links)
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(h.cfg.Session.CookieName); token != "" {
		if err := h.authService.Logout(token); err != nil {
			// The cookie is cleared regardless; the sweep will catch
			// the record if this write failed.
			h.logger.Error("failed to revoke session on logout", zap.Error(err))
		}
	}

	clearSessionCookie(c, h.cfg.Session.CookieName, h.cfg.Server.IsProduction())
	return c.Redirect("/", fiber.StatusFound)
}
