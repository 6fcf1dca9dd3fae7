package handler

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/dhughes/home-server-infrastructure/internal/config"
	"github.com/dhughes/home-server-infrastructure/internal/handler/middleware"
	"github.com/dhughes/home-server-infrastructure/internal/registry"
)

type IndexHandler struct {
	registry *registry.Registry
	cfg      *config.Config
}

func NewIndexHandler(reg *registry.Registry, cfg *config.Config) *IndexHandler {
	return &IndexHandler{
		registry: reg,
		cfg:      cfg,
	}
}

// appView is the template-facing shape of one application entry.
type appView struct {
	Name        string
	Path        string
	Icon        string
	Description string
	Private     bool
	ImageURL    string
}

// Index renders the application index. Anonymous callers see only public
// apps; authenticated ones see everything, with private apps marked.
// GET /
func (h *IndexHandler) Index(c *fiber.Ctx) error {
	identity := middleware.Identity(c)
	authenticated := identity != nil

	var apps []appView
	for _, app := range h.registry.LoadAll() {
		if !authenticated && !app.Public {
			continue
		}

		view := appView{
			Name:        app.Name,
			Path:        app.Path,
			Icon:        app.Icon,
			Description: app.Description,
			Private:     !app.Public,
		}
		if app.Image != "" {
			view.ImageURL = "/app-image/" + filepath.Base(app.Dir)
		}
		apps = append(apps, view)
	}

	data := fiber.Map{
		"Title":    "Apps",
		"SiteName": h.cfg.Server.SiteName,
		"Apps":     apps,
	}
	if authenticated {
		data["User"] = identity
		data["IsAdmin"] = identity.IsAdmin()
	}

	return c.Render("index", data, "layout")
}
