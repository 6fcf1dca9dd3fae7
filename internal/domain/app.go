package domain

// App is one hosted application's manifest, read from <apps_dir>/<app>/app.json.
// It is externally supplied and consumed read-only: the gateway never writes
// manifests, it only filters them for the index page.
type App struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Path        string `json:"path" validate:"required,startswith=/"`
	Port        int    `json:"port" validate:"required,gte=1,lte=65535"`
	Public      bool   `json:"public"`
	Icon        string `json:"icon"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description"`

	// Dir is the directory the manifest was loaded from, used to resolve
	// the Image file. Filled by the registry, not part of the manifest.
	Dir string `json:"-"`
}
