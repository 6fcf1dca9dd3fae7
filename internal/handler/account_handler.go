package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dhughes/home-server-infrastructure/internal/config"
	"github.com/dhughes/home-server-infrastructure/internal/domain"
	"github.com/dhughes/home-server-infrastructure/internal/handler/middleware"
	"github.com/dhughes/home-server-infrastructure/internal/service"
	"github.com/dhughes/home-server-infrastructure/pkg/validator"
)

type AccountHandler struct {
	authService *service.AuthService
	validator   *validator.Validator
	cfg         *config.Config
	logger      *zap.Logger
}

func NewAccountHandler(authService *service.AuthService, validate *validator.Validator, cfg *config.Config, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		authService: authService,
		validator:   validate,
		cfg:         cfg,
		logger:      logger,
	}
}

type changePasswordRequest struct {
	CurrentPassword string `form:"current_password" validate:"required"`
	NewPassword     string `form:"new_password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

func (h *AccountHandler) renderAccount(c *fiber.Ctx, status int, identity *domain.Identity, errMsg, success string) error {
	return c.Status(status).Render("account", fiber.Map{
		"Title":      "Account",
		"SiteName":   h.cfg.Server.SiteName,
		"User":       identity,
		"IsAdmin":    identity.IsAdmin(),
		"MustChange": identity.MustChangePassword,
		"Error":      errMsg,
		"Success":    success,
	}, "layout")
}

// ShowAccount renders the password-change form.
// GET /account
func (h *AccountHandler) ShowAccount(c *fiber.Ctx) error {
	return h.renderAccount(c, fiber.StatusOK, middleware.Identity(c), "", "")
}

// ChangePassword rotates the caller's password. Every other session of the
// user is revoked; the one performing the change stays alive.
// POST /account
func (h *AccountHandler) ChangePassword(c *fiber.Ctx) error {
	identity := middleware.Identity(c)

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return h.renderAccount(c, fiber.StatusBadRequest, identity, "Invalid form submission", "")
	}

	if err := h.validator.Validate(req); err != nil {
		return h.renderAccount(c, fiber.StatusBadRequest, identity, err.Error(), "")
	}

	err := h.authService.ChangePassword(middleware.Token(c), req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		// Reload the identity: a successful change clears the
		// must-change flag the current one still carries.
		refreshed, verr := h.authService.Validate(middleware.Token(c))
		if verr == nil {
			identity = refreshed
		}
		return h.renderAccount(c, fiber.StatusOK, identity, "", "Password updated successfully")
	case errors.Is(err, service.ErrInvalidCredentials):
		return h.renderAccount(c, fiber.StatusBadRequest, identity, "Current password is incorrect", "")
	case errors.Is(err, service.ErrWeakPassword):
		return h.renderAccount(c, fiber.StatusBadRequest, identity, err.Error(), "")
	case errors.Is(err, service.ErrAnonymous):
		return c.Redirect("/login", fiber.StatusFound)
	default:
		h.logger.Error("password change failed", zap.Error(err))
		return h.renderAccount(c, fiber.StatusInternalServerError, identity, "Something went wrong, please try again", "")
	}
}
