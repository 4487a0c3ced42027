package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/clapp-dev/clapp/internal/manifest"
)

// Registry enumerates apps installed under a single apps root.
type Registry struct {
	root string
}

// New creates a Registry for appsRoot. The directory does not need to exist.
func New(appsRoot string) *Registry {
	return &Registry{root: appsRoot}
}

// Root returns the apps root directory.
func (r *Registry) Root() string {
	return r.root
}

// PackagePath returns the install directory for name. It does not check
// whether the app exists.
func (r *Registry) PackagePath(name string) string {
	return filepath.Join(r.root, name)
}

// ListPackages returns every installed app with a valid manifest, in
// directory enumeration order. Invalid entries are skipped silently.
func (r *Registry) ListPackages() ([]Entry, error) {
	entries, _, err := r.Scan()
	return entries, err
}

// ListAppNames returns the names of all installed apps, in the same order
// and with the same skip rule as ListPackages.
func (r *Registry) ListAppNames() ([]string, error) {
	entries, err := r.ListPackages()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

// GetManifest loads the manifest of an installed app. It returns an error
// wrapping ErrNotFound when no valid app named name exists.
func (r *Registry) GetManifest(name string) (*manifest.Manifest, error) {
	if !manifest.ValidName(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	m, errs := r.load(name)
	if m == nil {
		if len(errs) == 0 {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("%q has an invalid manifest (%s): %w", name, strings.Join(errs, "; "), ErrNotFound)
	}
	return m, nil
}

// Exists reports whether a directory for name exists under the apps root,
// regardless of whether its manifest is valid.
func (r *Registry) Exists(name string) bool {
	if !manifest.ValidName(name) {
		return false
	}
	info, err := os.Stat(r.PackagePath(name))
	return err == nil && info.IsDir()
}

// Scan walks the apps root once and splits its subdirectories into valid
// entries and invalid ones with reasons. A missing apps root yields no
// entries and no error.
func (r *Registry) Scan() ([]Entry, []Invalid, error) {
	dirEntries, err := os.ReadDir(r.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading apps root %s: %w", r.root, err)
	}

	var entries []Entry
	var invalid []Invalid
	for _, d := range dirEntries {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}

		m, errs := r.load(d.Name())
		if m == nil {
			if len(errs) == 0 {
				errs = []string{"manifest.json not found"}
			}
			invalid = append(invalid, Invalid{
				Dir:    d.Name(),
				Path:   r.PackagePath(d.Name()),
				Errors: errs,
			})
			continue
		}

		entries = append(entries, Entry{
			Name:        m.Name,
			Version:     m.Version,
			Language:    m.Language,
			Description: m.Description,
			InstallPath: r.PackagePath(d.Name()),
		})
	}
	return entries, invalid, nil
}

// load reads the manifest in <root>/<dir>. It returns a nil manifest and no
// errors when the directory or manifest file does not exist.
func (r *Registry) load(dir string) (*manifest.Manifest, []string) {
	path := filepath.Join(r.PackagePath(dir), manifest.FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, []string{fmt.Sprintf("reading manifest: %v", err)}
	}

	m, err := manifest.Parse(data)
	if err != nil {
		return nil, manifest.Errors(err)
	}
	if m.Name != dir {
		return nil, []string{fmt.Sprintf("manifest name %q does not match directory %q", m.Name, dir)}
	}
	return m, nil
}
