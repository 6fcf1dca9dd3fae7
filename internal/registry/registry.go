// Package registry reads per-application manifests (<apps_dir>/<app>/app.json)
// and produces the descriptor list rendered on the index page.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/dhughes/home-server-infrastructure/internal/domain"
	"github.com/dhughes/home-server-infrastructure/pkg/validator"
)

type Registry struct {
	appsDir   string
	validator *validator.Validator
	logger    *zap.Logger
}

func New(appsDir string, validate *validator.Validator, logger *zap.Logger) *Registry {
	return &Registry{
		appsDir:   appsDir,
		validator: validate,
		logger:    logger,
	}
}

// LoadAll reads every manifest fresh from disk, sorted by app name.
// Malformed or invalid manifests are skipped with a warning: one broken app
// must not take down the whole index.
func (r *Registry) LoadAll() []domain.App {
	pattern := filepath.Join(r.appsDir, "*", "app.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		// Only possible on a malformed pattern; treat as empty registry.
		r.logger.Warn("failed to glob app manifests", zap.String("pattern", pattern), zap.Error(err))
		return nil
	}

	apps := make([]domain.App, 0, len(matches))
	for _, manifestPath := range matches {
		app, err := r.loadManifest(manifestPath)
		if err != nil {
			r.logger.Warn("skipping invalid app manifest",
				zap.String("path", manifestPath),
				zap.Error(err),
			)
			continue
		}
		apps = append(apps, app)
	}

	sort.Slice(apps, func(i, j int) bool {
		return apps[i].Name < apps[j].Name
	})
	return apps
}

// Lookup finds one app by its directory name. Used by the image handler to
// resolve assets without trusting any caller-supplied path.
func (r *Registry) Lookup(dirName string) (domain.App, bool) {
	// Reject anything that is not a plain directory name.
	if dirName == "" || dirName != filepath.Base(dirName) || dirName == "." || dirName == ".." {
		return domain.App{}, false
	}

	app, err := r.loadManifest(filepath.Join(r.appsDir, dirName, "app.json"))
	if err != nil {
		return domain.App{}, false
	}
	return app, true
}

func (r *Registry) loadManifest(path string) (domain.App, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.App{}, err
	}

	var app domain.App
	if err := json.Unmarshal(data, &app); err != nil {
		return domain.App{}, err
	}

	if err := r.validator.Validate(app); err != nil {
		return domain.App{}, err
	}

	app.Dir = filepath.Dir(path)
	return app, nil
}
