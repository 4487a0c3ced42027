package installer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clapp-dev/clapp/internal/archive"
	"github.com/clapp-dev/clapp/internal/manifest"
	"github.com/clapp-dev/clapp/internal/platform"
	"github.com/clapp-dev/clapp/internal/registry"
	"github.com/clapp-dev/clapp/internal/remote"
)

// Downloader fetches a remote archive to a local file.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
}

// Result describes a completed install.
type Result struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Path     string `json:"path"`
	Source   string `json:"source"`
	Replaced bool   `json:"replaced"`
}

// Installer mutates a single apps root.
type Installer struct {
	root            string
	reg             *registry.Registry
	downloader      Downloader
	downloadTimeout time.Duration
	logger          *zap.Logger

	// rename is os.Rename outside of tests.
	rename func(oldpath, newpath string) error
}

// Option configures an Installer.
type Option func(*Installer)

// WithDownloader sets the downloader used for URL sources.
func WithDownloader(d Downloader) Option {
	return func(i *Installer) {
		i.downloader = d
	}
}

// WithLogger sets the logger for stage transitions.
func WithLogger(l *zap.Logger) Option {
	return func(i *Installer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithDownloadTimeout bounds the download stage.
func WithDownloadTimeout(d time.Duration) Option {
	return func(i *Installer) {
		i.downloadTimeout = d
	}
}

// New creates an Installer for appsRoot.
func New(appsRoot string, opts ...Option) *Installer {
	i := &Installer{
		root:   appsRoot,
		reg:    registry.New(appsRoot),
		logger: zap.NewNop(),
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.downloader == nil {
		i.downloader = remote.NewClient("", remote.WithDownloadTimeout(i.downloadTimeout), remote.WithLogger(i.logger))
	}
	return i
}

// Root returns the apps root.
func (i *Installer) Root() string {
	return i.root
}

// Install installs the package at source, which is an http(s) URL, a local
// zip archive or a local directory. With force, an existing install of the
// same name is replaced; without it the install fails with ErrConflict.
func (i *Installer) Install(ctx context.Context, source string, force bool) (*Result, error) {
	return i.install(ctx, source, force, "")
}

func (i *Installer) install(ctx context.Context, source string, force bool, expect string) (*Result, error) {
	log := i.logger.With(zap.String("source", source))
	log.Debug("install stage", zap.String("stage", string(StageResolving)))

	remoteSrc := isURL(source)
	var localDir bool
	if !remoteSrc {
		info, err := os.Stat(source)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fail(StageResolving, KindNotFound, expect, fmt.Errorf("source %s does not exist", source))
			}
			return nil, fail(StageResolving, KindFilesystem, expect, err)
		}
		localDir = info.IsDir()
	}

	staging, err := i.newStaging()
	if err != nil {
		return nil, fail(StageResolving, KindFilesystem, expect, err)
	}
	defer os.RemoveAll(staging)

	archivePath := source
	if remoteSrc {
		log.Debug("install stage", zap.String("stage", string(StageDownloading)))
		archivePath = filepath.Join(staging, "download"+archive.Extension)
		if err := i.download(ctx, source, archivePath); err != nil {
			return nil, fail(StageDownloading, KindNetwork, expect, err)
		}
	}

	log.Debug("install stage", zap.String("stage", string(StageExtracting)))
	unpacked := filepath.Join(staging, "pkg")
	if localDir {
		err = archive.CopyDir(ctx, source, unpacked, archive.DefaultIgnore)
	} else {
		err = archive.Extract(ctx, archivePath, unpacked)
	}
	if err != nil {
		kind := KindFilesystem
		if errors.Is(err, archive.ErrNotZip) || errors.Is(err, archive.ErrUnsafePath) || errors.Is(err, archive.ErrCorrupt) {
			kind = KindValidation
		}
		return nil, fail(StageExtracting, kind, expect, err)
	}

	log.Debug("install stage", zap.String("stage", string(StageValidating)))
	pkgRoot, err := archive.PackageRoot(unpacked)
	if err != nil {
		return nil, fail(StageValidating, KindValidation, expect, err)
	}
	m, err := CheckPackageDir(pkgRoot)
	if err != nil {
		return nil, fail(StageValidating, KindValidation, expect, err)
	}
	if expect != "" && m.Name != expect {
		return nil, fail(StageValidating, KindValidation, expect,
			fmt.Errorf("archive contains package %q, expected %q", m.Name, expect))
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(StageValidating, KindNetwork, m.Name, err)
	}

	log.Debug("install stage", zap.String("stage", string(StagePlacing)), zap.String("package", m.Name))
	target := i.reg.PackagePath(m.Name)
	replaced, err := i.place(pkgRoot, target, staging, force)
	if err != nil {
		kind := KindFilesystem
		if errors.Is(err, ErrConflict) {
			kind = KindConflict
		}
		return nil, fail(StagePlacing, kind, m.Name, err)
	}

	log.Info("installed", zap.String("package", m.Name), zap.String("version", m.Version), zap.Bool("replaced", replaced))
	return &Result{
		Name:     m.Name,
		Version:  m.Version,
		Path:     target,
		Source:   source,
		Replaced: replaced,
	}, nil
}

// place moves pkgRoot to target. An existing target is moved into the
// staging directory first and restored if the final rename fails.
func (i *Installer) place(pkgRoot, target, staging string, force bool) (bool, error) {
	if err := platform.MkdirAll(i.root); err != nil {
		return false, fmt.Errorf("creating apps root: %w", err)
	}

	_, err := os.Lstat(target)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", target, err)
	}
	if exists && !force {
		return false, fmt.Errorf("%s: %w (use force to replace)", filepath.Base(target), ErrConflict)
	}

	backup := filepath.Join(staging, "backup")
	if exists {
		if err := i.rename(target, backup); err != nil {
			return false, fmt.Errorf("moving existing install aside: %w", err)
		}
	}

	if err := i.rename(pkgRoot, target); err != nil {
		if exists {
			if rerr := i.rename(backup, target); rerr != nil {
				i.logger.Error("restoring previous install failed",
					zap.String("path", target), zap.String("backup", backup), zap.Error(rerr))
				return false, fmt.Errorf("placing package: %w (restore failed: %v)", err, rerr)
			}
		}
		return false, fmt.Errorf("placing package: %w", err)
	}
	return exists, nil
}

// Uninstall removes the installed package name. The directory is first
// renamed out of the apps root so a failure never leaves a partial package.
func (i *Installer) Uninstall(name string) error {
	if !i.reg.Exists(name) {
		return fail(StageRemoving, KindNotFound, name, registry.ErrNotFound)
	}

	staging, err := i.newStaging()
	if err != nil {
		return fail(StageRemoving, KindFilesystem, name, err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			i.logger.Warn("cleaning up removed package", zap.String("path", staging), zap.Error(err))
		}
	}()

	if err := i.rename(i.reg.PackagePath(name), filepath.Join(staging, name)); err != nil {
		return fail(StageRemoving, KindFilesystem, name, err)
	}
	i.logger.Info("uninstalled", zap.String("package", name))
	return nil
}

// CheckPackageDir loads the manifest in dir and verifies that its entry
// file exists inside dir.
func CheckPackageDir(dir string) (*manifest.Manifest, error) {
	m, err := manifest.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if err := checkEntry(dir, m.Entry); err != nil {
		return nil, &manifest.ValidationError{Errors: []string{err.Error()}}
	}
	return m, nil
}

func checkEntry(dir, entry string) error {
	if filepath.IsAbs(entry) {
		return fmt.Errorf("entry %q must be a relative path", entry)
	}
	p := filepath.Join(dir, filepath.FromSlash(entry))
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("entry %q points outside the package", entry)
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return fmt.Errorf("entry file not found: %s", entry)
	}
	return nil
}

func (i *Installer) download(ctx context.Context, src, dest string) error {
	if i.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.downloadTimeout)
		defer cancel()
	}
	return i.downloader.Download(ctx, src, dest)
}

// newStaging creates a hidden temp directory next to the apps root.
func (i *Installer) newStaging() (string, error) {
	parent := filepath.Dir(filepath.Clean(i.root))
	if err := platform.MkdirAll(parent); err != nil {
		return "", fmt.Errorf("creating %s: %w", parent, err)
	}
	dir, err := os.MkdirTemp(parent, ".clapp-staging-")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	return dir, nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
