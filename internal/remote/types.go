package remote

import (
	"fmt"

	"github.com/clapp-dev/clapp/internal/manifest"
)

// Record is one package entry of the remote index: the manifest fields
// plus distribution metadata.
type Record struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Language     string   `json:"language"`
	Entry        string   `json:"entry"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
	DownloadURL  string   `json:"download_url"`
	Author       string   `json:"author,omitempty"`
	Category     string   `json:"category,omitempty"`
}

// Manifest returns the manifest portion of the record.
func (r Record) Manifest() *manifest.Manifest {
	return &manifest.Manifest{
		Name:         r.Name,
		Version:      r.Version,
		Language:     r.Language,
		Entry:        r.Entry,
		Description:  r.Description,
		Dependencies: r.Dependencies,
	}
}

// Index is the remote index document.
type Index struct {
	Packages  []Record `json:"packages"`
	UpdatedAt string   `json:"updated_at,omitempty"`
	Count     int      `json:"count,omitempty"`
}

// Find returns the record named name.
func (idx *Index) Find(name string) (*Record, bool) {
	for i := range idx.Packages {
		if idx.Packages[i].Name == name {
			return &idx.Packages[i], true
		}
	}
	return nil, false
}

// HTTPError is returned for a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}
