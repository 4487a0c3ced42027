package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// DefaultIgnore lists slash-separated globs that are never packaged or
// copied: VCS metadata, Python bytecode caches and OS litter.
var DefaultIgnore = []string{
	".git",
	".git/**",
	"**/__pycache__",
	"**/__pycache__/**",
	"**/*.pyc",
	"**/.DS_Store",
	"**/*.clapp.zip",
}

// entry is one path found under a walked root.
type entry struct {
	rel  string // slash-separated, relative to root
	path string
	dir  bool
	info fs.FileInfo
}

// Ignored reports whether the slash-separated relative path rel matches any
// of the patterns.
func Ignored(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// collect walks root and returns every regular file and directory not
// matched by ignore, sorted by relative path. Symlinks are skipped.
func collect(ctx context.Context, root string, ignore []string) ([]entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var (
		mu      sync.Mutex
		entries []entry
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if Ignored(rel, ignore) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || !(d.IsDir() || d.Type().IsRegular()) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		mu.Lock()
		entries = append(entries, entry{rel: rel, path: path, dir: d.IsDir(), info: fi})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })
	return entries, nil
}
