package handler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dhughes/home-server-infrastructure/internal/registry"
)

type AppImageHandler struct {
	registry *registry.Registry
	logger   *zap.Logger
}

func NewAppImageHandler(reg *registry.Registry, logger *zap.Logger) *AppImageHandler {
	return &AppImageHandler{
		registry: reg,
		logger:   logger,
	}
}

// AppImage streams the manifest-declared image out of the app's directory.
// Everything that can go wrong (unknown app, no image declared, image file
// escaping the app directory, missing file) is a plain 404 with no
// filesystem detail.
// GET /app-image/:app
func (h *AppImageHandler) AppImage(c *fiber.Ctx) error {
	app, ok := h.registry.Lookup(c.Params("app"))
	if !ok || app.Image == "" {
		return c.SendStatus(fiber.StatusNotFound)
	}

	imagePath := filepath.Join(app.Dir, app.Image)

	// The image name comes from the manifest, but manifests are app-owned
	// files; the resolved path must stay inside the app's directory.
	rel, err := filepath.Rel(app.Dir, imagePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		h.logger.Warn("app image escapes app directory",
			zap.String("app", c.Params("app")),
			zap.String("image", app.Image),
		)
		return c.SendStatus(fiber.StatusNotFound)
	}

	info, err := os.Stat(imagePath)
	if err != nil || info.IsDir() {
		return c.SendStatus(fiber.StatusNotFound)
	}

	return c.SendFile(imagePath)
}
