package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/clapp-dev/clapp/internal/installer"
	"github.com/clapp-dev/clapp/internal/platform"
	"github.com/clapp-dev/clapp/internal/registry"
	"github.com/clapp-dev/clapp/internal/remote"
)

// Work directory layout.
const (
	PackagesDir = "packages"
	DistDir     = "dist"
	IndexFile   = "index.json"
)

// DownloadURL returns the index download_url for a package version.
// Without a base URL the path is relative to the repository root.
func DownloadURL(baseURL, name, version string) string {
	rel := DistDir + "/" + installer.ArchiveName(name, version)
	if baseURL == "" {
		return rel
	}
	return strings.TrimRight(baseURL, "/") + "/" + rel
}

// BuildIndex builds an index from every valid app under packagesDir,
// sorted by name. Invalid staged folders are returned separately.
func BuildIndex(packagesDir, baseURL, author string) (*remote.Index, []registry.Invalid, error) {
	reg := registry.New(packagesDir)
	entries, invalid, err := reg.Scan()
	if err != nil {
		return nil, nil, err
	}

	idx := &remote.Index{Packages: make([]remote.Record, 0, len(entries))}
	for _, e := range entries {
		m, err := reg.GetManifest(e.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("reading staged manifest %s: %w", e.Name, err)
		}
		idx.Packages = append(idx.Packages, remote.Record{
			Name:         m.Name,
			Version:      m.Version,
			Language:     m.Language,
			Entry:        m.Entry,
			Description:  m.Description,
			Dependencies: m.Dependencies,
			DownloadURL:  DownloadURL(baseURL, m.Name, m.Version),
			Author:       author,
		})
	}
	sort.Slice(idx.Packages, func(i, j int) bool { return idx.Packages[i].Name < idx.Packages[j].Name })
	idx.Count = len(idx.Packages)
	idx.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return idx, invalid, nil
}

// KeepUpdatedAt carries prev's timestamp over to idx when both list the same
// records, so republishing unchanged content rewrites the index unchanged.
func KeepUpdatedAt(idx, prev *remote.Index) {
	if prev == nil || prev.UpdatedAt == "" {
		return
	}
	cur, err := json.Marshal(idx.Packages)
	if err != nil {
		return
	}
	old, err := json.Marshal(prev.Packages)
	if err != nil {
		return
	}
	if bytes.Equal(cur, old) {
		idx.UpdatedAt = prev.UpdatedAt
	}
}

// WriteIndex writes idx to path as indented JSON, replacing the previous
// file atomically.
func WriteIndex(path string, idx *remote.Index) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(idx); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.json")
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing index: %w", err)
	}
	if err := platform.Chmod(tmp.Name(), platform.FilePerm); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing index: %w", err)
	}
	return nil
}

// ReadIndex loads a previously written index.
func ReadIndex(path string) (*remote.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	var idx remote.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding index %s: %w", path, err)
	}
	return &idx, nil
}
