package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"

	"github.com/clapp-dev/clapp/internal/platform"
)

// Extension is the suffix of distributable app archives.
const Extension = ".clapp.zip"

// ErrUnsafePath is returned when an archive entry would be written outside
// the extraction directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// ErrNotZip is returned when a file is not a zip archive.
var ErrNotZip = errors.New("not a zip archive")

// ErrCorrupt is returned when a zip archive cannot be read.
var ErrCorrupt = errors.New("corrupt archive")

// entryTime is stamped on every entry so that archives of the same tree are
// byte-identical regardless of file mtimes.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// IsZip sniffs the content of path and reports whether it is a zip file.
// Formats built on zip (jar, docx) count as zip.
func IsZip(path string) (bool, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false, fmt.Errorf("detecting file type of %s: %w", path, err)
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true, nil
		}
	}
	return false, nil
}

// Create writes a zip archive of srcDir to outPath. Paths matching ignore
// are left out. It returns the number of files written. A partially
// written archive is removed on failure. Entry mtimes are fixed, so the
// output depends only on paths, modes and contents.
func Create(ctx context.Context, srcDir, outPath string, ignore []string) (n int, err error) {
	entries, err := collect(ctx, srcDir, ignore)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("creating archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing archive: %w", cerr)
		}
		if err != nil {
			os.Remove(outPath)
		}
	}()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		hdr, err := zip.FileInfoHeader(e.info)
		if err != nil {
			return 0, fmt.Errorf("header for %s: %w", e.rel, err)
		}
		hdr.Name = e.rel
		hdr.Modified = entryTime
		if e.dir {
			hdr.Name += "/"
			if _, err := zw.CreateHeader(hdr); err != nil {
				return 0, fmt.Errorf("adding %s: %w", e.rel, err)
			}
			continue
		}
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return 0, fmt.Errorf("adding %s: %w", e.rel, err)
		}
		if err := copyInto(w, e.path); err != nil {
			return 0, fmt.Errorf("adding %s: %w", e.rel, err)
		}
		n++
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalizing archive: %w", err)
	}
	return n, nil
}

// Extract unpacks the zip at archivePath into destDir, which is created if
// needed. Entries with absolute paths, parent references or symlink modes
// are rejected with ErrUnsafePath before anything is written.
func Extract(ctx context.Context, archivePath, destDir string) error {
	ok, err := IsZip(archivePath)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", archivePath, ErrNotZip)
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip archive: %w: %w", ErrCorrupt, err)
	}
	defer r.Close()

	targets := make([]string, len(r.File))
	for i, zf := range r.File {
		target, err := safeJoin(destDir, zf.Name)
		if err != nil {
			return err
		}
		if zf.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%s is a symlink: %w", zf.Name, ErrUnsafePath)
		}
		targets[i] = target
	}

	if err := platform.MkdirAll(destDir); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}

	for i, zf := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := targets[i]

		if zf.FileInfo().IsDir() || strings.HasSuffix(zf.Name, "/") {
			if err := platform.MkdirAll(target); err != nil {
				return fmt.Errorf("creating directory %s: %w", zf.Name, err)
			}
			continue
		}
		if err := extractFile(zf, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	if err := platform.MkdirAll(filepath.Dir(target)); err != nil {
		return fmt.Errorf("creating directory for %s: %w", zf.Name, err)
	}

	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("opening zip entry %s: %w: %w", zf.Name, ErrCorrupt, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, platform.FileMode(zf.Mode()))
	if err != nil {
		return fmt.Errorf("creating %s: %w", zf.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w: %w", zf.Name, ErrCorrupt, err)
	}
	return out.Close()
}

// safeJoin joins the zip entry name onto dir and fails if the result would
// land outside dir.
func safeJoin(dir, name string) (string, error) {
	clean := strings.ReplaceAll(name, `\`, "/")
	if clean == "" || strings.HasPrefix(clean, "/") || filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafePath)
	}
	target := filepath.Join(dir, filepath.FromSlash(clean))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafePath)
	}
	return target, nil
}

func copyInto(w io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(w, in)
	return err
}
