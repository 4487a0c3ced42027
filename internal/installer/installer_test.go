package installer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clapp-dev/clapp/internal/archive"
	"github.com/clapp-dev/clapp/internal/registry"
	"github.com/clapp-dev/clapp/internal/remote"
)

const helloManifest = `{"name": "hello-world", "version": "1.0.0", "language": "python", "entry": "main.py"}`

// env is an isolated workspace: apps root under base, sources elsewhere.
type env struct {
	base string
	root string
	src  string
	inst *Installer
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "apps")
	return &env{base: base, root: root, src: t.TempDir(), inst: New(root, opts...)}
}

// appDir writes files into a fresh directory under the source area.
func (e *env) appDir(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(e.src, name)
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return dir
}

// appZip packages files into <src>/<name>.clapp.zip.
func (e *env) appZip(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	dir := e.appDir(t, name+"-tree", files)
	out := filepath.Join(e.src, name+archive.Extension)
	_, err := archive.Create(context.Background(), dir, out, nil)
	require.NoError(t, err)
	return out
}

// snapshot maps every path under dir to its content ("<dir>" for directories).
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && p == dir {
				return filepath.SkipDir
			}
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		if d.IsDir() {
			out[rel] = "<dir>"
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

// assertNoStaging fails if a staging directory was left next to the apps root.
func (e *env) assertNoStaging(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.base)
	require.NoError(t, err)
	for _, de := range entries {
		assert.False(t, strings.HasPrefix(de.Name(), ".clapp-staging-"), "leftover staging dir %s", de.Name())
	}
}

func TestInstallFreshFromZip(t *testing.T) {
	e := newEnv(t)
	zipPath := e.appZip(t, "hello-world", map[string]string{
		"manifest.json":   helloManifest,
		"main.py":         "print('hello')",
		"assets/data.txt": "asset",
	})

	res, err := e.inst.Install(context.Background(), zipPath, false)
	require.NoError(t, err)
	assert.Equal(t, "hello-world", res.Name)
	assert.Equal(t, "1.0.0", res.Version)
	assert.False(t, res.Replaced)

	reg := registry.New(e.root)
	names, err := reg.ListAppNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"hello-world"}, names)

	m, err := reg.GetManifest("hello-world")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", m.Version)

	got := snapshot(t, filepath.Join(e.root, "hello-world"))
	assert.Equal(t, "print('hello')", got["main.py"])
	assert.Equal(t, "asset", got[filepath.Join("assets", "data.txt")])
	e.assertNoStaging(t)
}

func TestInstallFromDirectory(t *testing.T) {
	e := newEnv(t)
	dir := e.appDir(t, "calc", map[string]string{
		"manifest.json":     `{"name": "calc", "version": "0.1", "language": "lua", "entry": "src/main.lua"}`,
		"src/main.lua":      "print(1+1)",
		"__pycache__/x.pyc": "junk",
	})

	res, err := e.inst.Install(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.root, "calc"), res.Path)

	got := snapshot(t, res.Path)
	assert.Contains(t, got, filepath.Join("src", "main.lua"))
	assert.NotContains(t, got, "__pycache__")
	assert.DirExists(t, dir, "source directory must be left alone")
}

func TestInstallNestedArchive(t *testing.T) {
	e := newEnv(t)
	zipPath := e.appZip(t, "nested", map[string]string{
		"hello-world/manifest.json": helloManifest,
		"hello-world/main.py":       "print('hi')",
	})

	res, err := e.inst.Install(context.Background(), zipPath, false)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(res.Path, "main.py"))
	assert.FileExists(t, filepath.Join(res.Path, "manifest.json"))
}

func TestInstallFailuresLeaveRootUntouched(t *testing.T) {
	badZip := func(t *testing.T, e *env) string {
		p := filepath.Join(e.src, "bad"+archive.Extension)
		require.NoError(t, os.WriteFile(p, []byte("definitely not a zip"), 0644))
		return p
	}

	tests := []struct {
		name   string
		source func(t *testing.T, e *env) string
		kind   Kind
		stage  Stage
	}{
		{"bad archive", badZip, KindValidation, StageExtracting},
		{"missing source", func(t *testing.T, e *env) string {
			return filepath.Join(e.src, "nope.clapp.zip")
		}, KindNotFound, StageResolving},
		{"invalid manifest", func(t *testing.T, e *env) string {
			return e.appZip(t, "invalid", map[string]string{
				"manifest.json": `{"name": "invalid", "language": "ruby"}`,
			})
		}, KindValidation, StageValidating},
		{"malformed manifest", func(t *testing.T, e *env) string {
			return e.appZip(t, "malformed", map[string]string{"manifest.json": `{"name": `})
		}, KindValidation, StageValidating},
		{"missing entry", func(t *testing.T, e *env) string {
			return e.appZip(t, "noentry", map[string]string{"manifest.json": helloManifest})
		}, KindValidation, StageValidating},
		{"no manifest", func(t *testing.T, e *env) string {
			return e.appZip(t, "empty", map[string]string{"readme.txt": "x"})
		}, KindValidation, StageValidating},
		{"conflict", func(t *testing.T, e *env) string {
			return e.appZip(t, "dup", map[string]string{"manifest.json": helloManifest, "main.py": "new"})
		}, KindConflict, StagePlacing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			existing := e.appZip(t, "existing", map[string]string{"manifest.json": helloManifest, "main.py": "old"})
			_, err := e.inst.Install(context.Background(), existing, false)
			require.NoError(t, err)

			before := snapshot(t, e.root)
			_, err = e.inst.Install(context.Background(), tt.source(t, e), false)
			require.Error(t, err)

			var ie *Error
			require.True(t, errors.As(err, &ie), "err = %v", err)
			assert.Equal(t, tt.kind, ie.Kind)
			assert.Equal(t, tt.stage, ie.Stage)
			assert.Equal(t, before, snapshot(t, e.root))
			e.assertNoStaging(t)
		})
	}
}

func TestInstallConflictAndForce(t *testing.T) {
	e := newEnv(t)
	v1 := e.appZip(t, "v1", map[string]string{"manifest.json": helloManifest, "main.py": "v1", "old.txt": "stale"})
	v2 := e.appZip(t, "v2", map[string]string{
		"manifest.json": `{"name": "hello-world", "version": "2.0.0", "language": "python", "entry": "main.py"}`,
		"main.py":       "v2",
	})

	_, err := e.inst.Install(context.Background(), v1, false)
	require.NoError(t, err)

	_, err = e.inst.Install(context.Background(), v2, false)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, KindConflict, KindOf(err))

	res, err := e.inst.Install(context.Background(), v2, true)
	require.NoError(t, err)
	assert.True(t, res.Replaced)

	got := snapshot(t, res.Path)
	assert.Equal(t, "v2", got["main.py"])
	assert.NotContains(t, got, "old.txt", "force must fully replace the directory")
	e.assertNoStaging(t)
}

func TestForceInstallRestoresOnPlacementFailure(t *testing.T) {
	e := newEnv(t)
	v1 := e.appZip(t, "v1", map[string]string{"manifest.json": helloManifest, "main.py": "v1"})
	v2 := e.appZip(t, "v2", map[string]string{"manifest.json": helloManifest, "main.py": "v2"})
	_, err := e.inst.Install(context.Background(), v1, false)
	require.NoError(t, err)
	before := snapshot(t, e.root)

	target := filepath.Join(e.root, "hello-world")
	e.inst.rename = func(oldpath, newpath string) error {
		if newpath == target && !strings.HasSuffix(oldpath, "backup") {
			return errors.New("injected rename failure")
		}
		return os.Rename(oldpath, newpath)
	}

	_, err = e.inst.Install(context.Background(), v2, true)
	require.Error(t, err)
	assert.Equal(t, KindFilesystem, KindOf(err))
	assert.Equal(t, before, snapshot(t, e.root))
	e.assertNoStaging(t)
}

func TestUninstallThenInstallIsIdempotent(t *testing.T) {
	e := newEnv(t)
	zipPath := e.appZip(t, "hello", map[string]string{"manifest.json": helloManifest, "main.py": "x", "lib/a.py": "a"})
	other := e.appZip(t, "other", map[string]string{
		"manifest.json": `{"name": "other", "version": "1", "language": "lua", "entry": "main.lua"}`,
		"main.lua":      "",
	})

	_, err := e.inst.Install(context.Background(), zipPath, false)
	require.NoError(t, err)
	_, err = e.inst.Install(context.Background(), other, false)
	require.NoError(t, err)
	first := snapshot(t, filepath.Join(e.root, "hello-world"))
	otherBefore := snapshot(t, filepath.Join(e.root, "other"))

	require.NoError(t, e.inst.Uninstall("hello-world"))
	assert.NoDirExists(t, filepath.Join(e.root, "hello-world"))
	assert.Equal(t, otherBefore, snapshot(t, filepath.Join(e.root, "other")), "sibling must be untouched")

	_, err = e.inst.Install(context.Background(), zipPath, false)
	require.NoError(t, err)
	assert.Equal(t, first, snapshot(t, filepath.Join(e.root, "hello-world")))
	e.assertNoStaging(t)
}

func TestUninstallNotFound(t *testing.T) {
	e := newEnv(t)
	err := e.inst.Uninstall("ghost")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsNotInstalled(err))

	assert.Error(t, e.inst.Uninstall("../apps"))
}

func TestInstallFromURL(t *testing.T) {
	e := newEnv(t)
	zipPath := e.appZip(t, "hello", map[string]string{"manifest.json": helloManifest, "main.py": "x"})
	data, err := os.ReadFile(zipPath)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hello.clapp.zip":
			w.Write(data)
		case "/error":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/truncated":
			w.Header().Set("Content-Length", "100000")
			w.WriteHeader(http.StatusOK)
			w.Write(data[:len(data)/2])
			w.(http.Flusher).Flush()
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e.inst = New(e.root, WithDownloader(remote.NewClient("", remote.WithRetries(0))))

	for _, path := range []string{"/error", "/missing", "/truncated"} {
		t.Run(path, func(t *testing.T) {
			before := snapshot(t, e.root)
			_, err := e.inst.Install(context.Background(), srv.URL+path, false)
			require.Error(t, err)
			assert.Equal(t, KindNetwork, KindOf(err))
			assert.Equal(t, before, snapshot(t, e.root))
			e.assertNoStaging(t)
		})
	}

	res, err := e.inst.Install(context.Background(), srv.URL+"/hello.clapp.zip", false)
	require.NoError(t, err)
	assert.Equal(t, "hello-world", res.Name)
}

func TestInstallCancelledDuringDownload(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("PK"))
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	e := newEnv(t, WithDownloader(remote.NewClient("", remote.WithRetries(0))))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := e.inst.Install(ctx, srv.URL+"/slow.clapp.zip", false)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.NoDirExists(t, e.root)
	e.assertNoStaging(t)
}

func TestCreatePackageFromDirectory(t *testing.T) {
	e := newEnv(t)
	dir := e.appDir(t, "demo", map[string]string{
		"manifest.json": `{"name": "demo", "version": "2.0.0", "language": "python", "entry": "main.py"}`,
		"main.py":       "print('demo')",
	})
	out := t.TempDir()

	path, err := e.inst.CreatePackageFromDirectory(context.Background(), dir, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "demo-2.0.0.clapp.zip"), path)

	res, err := e.inst.Install(context.Background(), path, false)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", res.Version)

	bad := e.appDir(t, "bad", map[string]string{
		"manifest.json": `{"name": "bad", "version": "1", "language": "python", "entry": "missing.py"}`,
	})
	_, err = e.inst.CreatePackageFromDirectory(context.Background(), bad, out)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.NoFileExists(t, filepath.Join(out, "bad-1.clapp.zip"))
}

func TestCheckEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.py"), nil, 0644))

	assert.NoError(t, checkEntry(dir, "src/main.py"))
	assert.Error(t, checkEntry(dir, "src"))
	assert.Error(t, checkEntry(dir, "../main.py"))
	assert.Error(t, checkEntry(dir, "missing.py"))
}
