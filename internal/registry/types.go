package registry

import "errors"

// ErrNotFound is returned (wrapped) when a named app is not installed.
var ErrNotFound = errors.New("app not installed")

// Entry describes one installed app.
type Entry struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Language    string `json:"language"`
	Description string `json:"description"`
	InstallPath string `json:"install_path"`
}

// Invalid describes an apps root subdirectory whose manifest could not be
// loaded or failed validation.
type Invalid struct {
	Dir    string   `json:"dir"`
	Path   string   `json:"path"`
	Errors []string `json:"errors"`
}
