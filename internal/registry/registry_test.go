package registry

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

// writeApp creates <root>/<dir>/manifest.json with the given content.
func writeApp(t *testing.T, root, dir, manifestJSON string) {
	t.Helper()
	appDir := filepath.Join(root, dir)
	if err := os.MkdirAll(appDir, 0755); err != nil {
		t.Fatal(err)
	}
	if manifestJSON == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(appDir, "manifest.json"), []byte(manifestJSON), 0644); err != nil {
		t.Fatal(err)
	}
}

func validManifest(name, version string) string {
	return `{"name": "` + name + `", "version": "` + version + `", "language": "python", "entry": "main.py"}`
}

func TestListPackagesMissingRoot(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "does-not-exist"))

	entries, err := r.ListPackages()
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected zero packages, got %d", len(entries))
	}
}

func TestListPackagesSkipsInvalid(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, "hello-world", validManifest("hello-world", "1.0.0"))
	writeApp(t, root, "calc", `{"name": "calc", "version": "0.1", "language": "lua", "entry": "main.lua", "description": "Hesap"}`)
	writeApp(t, root, "corrupt", `{"name": "corrupt", `)
	writeApp(t, root, "no-manifest", "")
	writeApp(t, root, "mismatch", validManifest("other-name", "1.0.0"))
	writeApp(t, root, ".staging", validManifest(".staging", "1.0.0"))
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	r := New(root)
	names, err := r.ListAppNames()
	if err != nil {
		t.Fatalf("ListAppNames: %v", err)
	}
	sort.Strings(names)
	if !reflect.DeepEqual(names, []string{"calc", "hello-world"}) {
		t.Errorf("names = %v, want [calc hello-world]", names)
	}

	entries, err := r.ListPackages()
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}
	for _, e := range entries {
		if e.Name == "calc" {
			if e.Description != "Hesap" || e.Language != "lua" || e.Version != "0.1" {
				t.Errorf("calc entry = %+v", e)
			}
			if e.InstallPath != filepath.Join(root, "calc") {
				t.Errorf("InstallPath = %q", e.InstallPath)
			}
		}
	}
}

func TestScanReportsInvalid(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, "good", validManifest("good", "1.0.0"))
	writeApp(t, root, "bad-lang", `{"name": "bad-lang", "version": "1", "language": "ruby", "entry": "main.rb"}`)
	writeApp(t, root, "empty", "")

	entries, invalid, err := New(root).Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "good" {
		t.Errorf("entries = %+v", entries)
	}
	if len(invalid) != 2 {
		t.Fatalf("invalid = %+v, want 2 entries", invalid)
	}
	byDir := map[string]Invalid{}
	for _, inv := range invalid {
		byDir[inv.Dir] = inv
	}
	if len(byDir["bad-lang"].Errors) == 0 {
		t.Error("bad-lang should carry validation errors")
	}
	if got := byDir["empty"].Errors; len(got) != 1 || got[0] != "manifest.json not found" {
		t.Errorf("empty errors = %v", got)
	}
}

func TestGetManifest(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, "hello-world", validManifest("hello-world", "1.0.0"))
	writeApp(t, root, "corrupt", `not json`)
	r := New(root)

	m, err := r.GetManifest("hello-world")
	if err != nil {
		t.Fatalf("GetManifest: %v", err)
	}
	if m.Version != "1.0.0" {
		t.Errorf("Version = %q, want 1.0.0", m.Version)
	}

	for _, name := range []string{"missing", "corrupt", "../hello-world", ""} {
		if _, err := r.GetManifest(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetManifest(%q) err = %v, want ErrNotFound", name, err)
		}
	}
}

func TestExists(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, "no-manifest", "")
	r := New(root)

	if !r.Exists("no-manifest") {
		t.Error("Exists should be true for a directory without manifest")
	}
	if r.Exists("nope") {
		t.Error("Exists should be false for a missing directory")
	}
	if r.Exists("..") {
		t.Error("Exists must reject path traversal names")
	}
}
