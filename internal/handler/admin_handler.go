package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dhughes/home-server-infrastructure/internal/config"
	"github.com/dhughes/home-server-infrastructure/internal/domain"
	"github.com/dhughes/home-server-infrastructure/internal/handler/middleware"
	"github.com/dhughes/home-server-infrastructure/internal/repository"
	"github.com/dhughes/home-server-infrastructure/internal/service"
	"github.com/dhughes/home-server-infrastructure/pkg/validator"
)

// AdminHandler serves the user-management pages. Routes are gated to admins
// by middleware, so unlike the login form these pages report the specific
// reason an operation was refused.
type AdminHandler struct {
	userService *service.UserService
	validator   *validator.Validator
	cfg         *config.Config
	logger      *zap.Logger
}

func NewAdminHandler(userService *service.UserService, validate *validator.Validator, cfg *config.Config, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		userService: userService,
		validator:   validate,
		cfg:         cfg,
		logger:      logger,
	}
}

type createUserRequest struct {
	Username string `form:"username" validate:"required,min=3,max=64"`
	Password string `form:"password" validate:"required,min=8"`
	Role     string `form:"role" validate:"required,oneof=user admin"`
}

type targetUserRequest struct {
	Username string `form:"username" validate:"required"`
}

type setRoleRequest struct {
	Username string `form:"username" validate:"required"`
	Role     string `form:"role" validate:"required,oneof=user admin"`
}

// userView hides everything but the fields the page renders.
type userView struct {
	Username string
	Role     domain.Role
	IsSelf   bool
}

func (h *AdminHandler) renderUsers(c *fiber.Ctx, status int, errMsg, success string) error {
	identity := middleware.Identity(c)

	users, err := h.userService.ListUsers(identity)
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			Username: u.Username,
			Role:     u.Role,
			IsSelf:   u.Username == identity.Username,
		})
	}

	return c.Status(status).Render("admin_users", fiber.Map{
		"Title":    "User Management",
		"SiteName": h.cfg.Server.SiteName,
		"User":     identity,
		"IsAdmin":  true,
		"Users":    views,
		"Error":    errMsg,
		"Success":  success,
	}, "layout")
}

// ListUsers renders the user table and the add-user form.
// GET /admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	return h.renderUsers(c, fiber.StatusOK, "", "")
}

// CreateUser adds an account.
// POST /admin/users/add
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return h.renderUsers(c, fiber.StatusBadRequest, "Invalid form submission", "")
	}
	if err := h.validator.Validate(req); err != nil {
		return h.renderUsers(c, fiber.StatusBadRequest, err.Error(), "")
	}

	err := h.userService.CreateUser(middleware.Identity(c), req.Username, req.Password, domain.Role(req.Role))
	switch {
	case err == nil:
		return h.renderUsers(c, fiber.StatusOK, "", fmt.Sprintf("User %q added", req.Username))
	case errors.Is(err, repository.ErrUserExists):
		return h.renderUsers(c, fiber.StatusConflict, "User already exists", "")
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	default:
		h.logger.Error("failed to create user", zap.Error(err))
		return h.renderUsers(c, fiber.StatusInternalServerError, "Something went wrong, please try again", "")
	}
}

// DeleteUser removes an account and cascades to its sessions.
// POST /admin/users/delete
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	var req targetUserRequest
	if err := c.BodyParser(&req); err != nil {
		return h.renderUsers(c, fiber.StatusBadRequest, "Invalid form submission", "")
	}
	if err := h.validator.Validate(req); err != nil {
		return h.renderUsers(c, fiber.StatusBadRequest, err.Error(), "")
	}

	err := h.userService.DeleteUser(middleware.Identity(c), req.Username)
	switch {
	case err == nil:
		return h.renderUsers(c, fiber.StatusOK, "", fmt.Sprintf("User %q deleted", req.Username))
	case errors.Is(err, service.ErrSelfDelete):
		return h.renderUsers(c, fiber.StatusBadRequest, "Cannot delete your own account", "")
	case errors.Is(err, repository.ErrLastAdmin):
		return h.renderUsers(c, fiber.StatusBadRequest, "Cannot delete the last admin", "")
	case errors.Is(err, repository.ErrUserNotFound):
		return h.renderUsers(c, fiber.StatusNotFound, "User not found", "")
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	default:
		h.logger.Error("failed to delete user", zap.Error(err))
		return h.renderUsers(c, fiber.StatusInternalServerError, "Something went wrong, please try again", "")
	}
}

// SetRole changes an account's role.
// POST /admin/users/role
func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	var req setRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return h.renderUsers(c, fiber.StatusBadRequest, "Invalid form submission", "")
	}
	if err := h.validator.Validate(req); err != nil {
		return h.renderUsers(c, fiber.StatusBadRequest, err.Error(), "")
	}

	err := h.userService.SetRole(middleware.Identity(c), req.Username, domain.Role(req.Role))
	switch {
	case err == nil:
		return h.renderUsers(c, fiber.StatusOK, "", fmt.Sprintf("User %q is now %s", req.Username, req.Role))
	case errors.Is(err, repository.ErrLastAdmin):
		return h.renderUsers(c, fiber.StatusBadRequest, "Cannot demote the last admin", "")
	case errors.Is(err, repository.ErrUserNotFound):
		return h.renderUsers(c, fiber.StatusNotFound, "User not found", "")
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	default:
		h.logger.Error("failed to change role", zap.Error(err))
		return h.renderUsers(c, fiber.StatusInternalServerError, "Something went wrong, please try again", "")
	}
}
