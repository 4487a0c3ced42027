package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/clapp-dev/clapp/internal/manifest"
	"github.com/clapp-dev/clapp/internal/platform"
)

// ErrNoManifest is returned by PackageRoot when no manifest can be found.
var ErrNoManifest = errors.New("manifest.json not found in package")

// CopyDir copies the tree under src into dst, skipping paths matched by
// ignore. dst is created if missing; file permissions are preserved.
func CopyDir(ctx context.Context, src, dst string, ignore []string) error {
	entries, err := collect(ctx, src, ignore)
	if err != nil {
		return err
	}
	if err := platform.MkdirAll(dst); err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(dst, filepath.FromSlash(e.rel))
		if e.dir {
			if err := os.MkdirAll(target, e.info.Mode().Perm()|0700); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			continue
		}
		if err := copyFile(e.path, target, e.info.Mode().Perm()); err != nil {
			return fmt.Errorf("copying %s: %w", e.rel, err)
		}
	}
	return nil
}

// PackageRoot returns the directory inside an extracted tree that holds the
// manifest: dir itself, or its only top-level subdirectory when the
// archive was made by zipping a folder.
func PackageRoot(dir string) (string, error) {
	if fileExists(filepath.Join(dir, manifest.FileName)) {
		return dir, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}
	var dirs []fs.DirEntry
	for _, e := range entries {
		if e.Name() == "__MACOSX" || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !e.IsDir() {
			return "", ErrNoManifest
		}
		dirs = append(dirs, e)
	}
	if len(dirs) == 1 {
		inner := filepath.Join(dir, dirs[0].Name())
		if fileExists(filepath.Join(inner, manifest.FileName)) {
			return inner, nil
		}
	}
	return "", ErrNoManifest
}

func copyFile(src, dst string, perm fs.FileMode) error {
	if err := platform.MkdirAll(filepath.Dir(dst)); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, platform.FileMode(perm))
	if err != nil {
		return err
	}
	if err := copyInto(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
