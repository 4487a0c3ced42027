package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/clapp-dev/clapp/internal/catalog"
	"github.com/clapp-dev/clapp/internal/config"
	"github.com/clapp-dev/clapp/internal/installer"
	"github.com/clapp-dev/clapp/internal/manifest"
	"github.com/clapp-dev/clapp/internal/publish"
	"github.com/clapp-dev/clapp/internal/registry"
	"github.com/clapp-dev/clapp/internal/remote"
	"github.com/clapp-dev/clapp/internal/resolver"
	"github.com/clapp-dev/clapp/internal/runtime"
)

// Result is the outcome of a mutating operation.
type Result struct {
	Success bool
	Message string
	Err     error
}

func ok(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func failed(err error) Result {
	return Result{Success: false, Message: describe(err), Err: err}
}

// Service wires the core components for one apps root.
type Service struct {
	cfg    config.Settings
	logger *zap.Logger

	mu        sync.Mutex
	reg       *registry.Registry
	inst      *installer.Installer
	res       *resolver.Resolver
	remote    *remote.Client
	pub       *publish.Pipeline
	detector  runtime.Detector
	pusher    publish.Pusher
	remoteOps []remote.Option
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger handed to every component.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDetector replaces the PATH-based capability detector.
func WithDetector(d runtime.Detector) Option {
	return func(s *Service) { s.detector = d }
}

// WithPusher replaces the go-git pusher used by Publish.
func WithPusher(p publish.Pusher) Option {
	return func(s *Service) { s.pusher = p }
}

// WithRemoteOptions passes extra options to the remote client.
func WithRemoteOptions(opts ...remote.Option) Option {
	return func(s *Service) { s.remoteOps = append(s.remoteOps, opts...) }
}

// New creates a Service from cfg.
func New(cfg config.Settings, opts ...Option) *Service {
	s := &Service{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.detector == nil {
		s.detector = runtime.NewPathDetector()
	}
	if s.pusher == nil {
		s.pusher = publish.NewGitPusher(cfg.Author, cfg.GitToken)
	}

	remoteOpts := append([]remote.Option{
		remote.WithTimeout(cfg.IndexTimeout),
		remote.WithDownloadTimeout(cfg.DownloadTimeout),
		remote.WithLogger(s.logger.Named("remote")),
	}, s.remoteOps...)
	s.remote = remote.NewClient(cfg.IndexURL, remoteOpts...)

	s.reg = registry.New(cfg.AppsRoot)
	s.inst = installer.New(cfg.AppsRoot,
		installer.WithDownloader(s.remote),
		installer.WithDownloadTimeout(cfg.DownloadTimeout),
		installer.WithLogger(s.logger.Named("installer")),
	)
	s.res = resolver.New(s.reg, s.detector)
	s.pub = publish.New(cfg.PublishDir,
		publish.WithBaseURL(cfg.PublishBaseURL),
		publish.WithAuthor(cfg.Author),
		publish.WithPusher(s.pusher),
		publish.WithLogger(s.logger.Named("publish")),
	)
	return s
}

// Settings returns the configuration the service was built with.
func (s *Service) Settings() config.Settings {
	return s.cfg
}

// ListPackages returns the installed apps.
func (s *Service) ListPackages() ([]registry.Entry, error) {
	return s.reg.ListPackages()
}

// ListAppNames returns the names of the installed apps.
func (s *Service) ListAppNames() ([]string, error) {
	return s.reg.ListAppNames()
}

// GetManifest returns the manifest of an installed app.
func (s *Service) GetManifest(name string) (*manifest.Manifest, bool) {
	m, err := s.reg.GetManifest(name)
	if err != nil {
		s.logger.Debug("manifest lookup failed", zap.String("package", name), zap.Error(err))
		return nil, false
	}
	return m, true
}

// Where returns the install directory of name.
func (s *Service) Where(name string) (string, bool) {
	if _, ok := s.GetManifest(name); !ok {
		return "", false
	}
	return s.reg.PackagePath(name), true
}

// Install installs from a URL, a local archive or a local directory.
func (s *Service) Install(ctx context.Context, source string, force bool) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.inst.Install(ctx, source, force)
	if err != nil {
		return failed(err)
	}
	return installed(r)
}

// InstallFromRemote installs name using its download_url from the index.
func (s *Service) InstallFromRemote(ctx context.Context, name string, force bool) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.inst.InstallFromRemote(ctx, name, force, s.remote)
	if err != nil {
		return failed(err)
	}
	return installed(r)
}

func installed(r *installer.Result) Result {
	verb := "installed"
	if r.Replaced {
		verb = "reinstalled"
	}
	return ok("%s v%s %s to %s", r.Name, r.Version, verb, r.Path)
}

// Uninstall removes an installed app.
func (s *Service) Uninstall(name string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.inst.Uninstall(name); err != nil {
		return failed(err)
	}
	return ok("%s uninstalled", name)
}

// Upgrade reinstalls name when the index lists a different version.
func (s *Service) Upgrade(ctx context.Context, name string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.inst.Upgrade(ctx, name, s.remote)
	if err != nil {
		return failed(err)
	}
	if r.UpToDate {
		return ok("%s is already up to date (v%s)", name, r.From)
	}
	return ok("%s %s: %s → %s", name, r.Direction, r.From, r.To)
}

// Resolve returns the dependency report of an installed app.
func (s *Service) Resolve(name string) (*resolver.Report, error) {
	return s.res.Resolve(name)
}

// ResolveSystem returns the dependency report of every installed app.
func (s *Service) ResolveSystem() (*resolver.SystemReport, error) {
	return s.res.ResolveSystem()
}

// GetPackageInfo looks name up in the remote index.
func (s *Service) GetPackageInfo(ctx context.Context, name string) (*remote.Record, bool) {
	return s.remote.GetPackageInfo(ctx, name)
}

// ListRemotePackages returns every record of the remote index.
func (s *Service) ListRemotePackages(ctx context.Context) []remote.Record {
	return s.remote.ListRemotePackages(ctx)
}

// SearchPackages searches the remote index.
func (s *Service) SearchPackages(ctx context.Context, query string) []remote.Record {
	return s.remote.SearchPackages(ctx, query)
}

// CheckConnectivity reports whether the remote index is reachable.
func (s *Service) CheckConnectivity(ctx context.Context) bool {
	return s.remote.CheckConnectivity(ctx)
}

// Validate checks the app in folder and returns every problem found. The
// entry file is checked only once the manifest itself is valid.
func (s *Service) Validate(folder string) []string {
	valid, errs, err := manifest.ValidateFile(filepath.Join(folder, manifest.FileName))
	if err != nil {
		return []string{err.Error()}
	}
	if !valid {
		return errs
	}
	if _, err := installer.CheckPackageDir(folder); err != nil {
		return manifest.Errors(err)
	}
	return nil
}

// Publish runs the publish pipeline for folder.
func (s *Service) Publish(ctx context.Context, folder string, push bool) (Result, *publish.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, err := catalog.Inspect(s.pub.WorkDir()); err == nil && st.Checkout && st.Stale {
		s.logger.Warn("publish repository has not been updated recently; run 'clapp catalog update'",
			zap.String("dir", st.Dir), zap.Time("last_updated", st.LastUpdated))
	}

	r, err := s.pub.Publish(ctx, folder, push)
	if err != nil {
		return failed(err), nil
	}

	msg := fmt.Sprintf("%s v%s staged in %s (%d package(s) in index)", r.Name, r.Version, s.pub.WorkDir(), r.Packages)
	switch {
	case r.Partial():
		return Result{
			Success: true,
			Message: msg + "; push failed: " + r.PushErr.Error(),
			Err:     r.PushErr,
		}, r
	case r.NoChanges:
		msg += "; nothing to push"
	case r.Pushed:
		msg += "; pushed"
	}
	return ok("%s", msg), r
}

// CatalogRepo returns the URL CloneCatalog clones from.
func (s *Service) CatalogRepo() string {
	if s.cfg.CatalogRepo != "" {
		return s.cfg.CatalogRepo
	}
	return catalog.DefaultRepoURL()
}

// CloneCatalog clones the package repository into the publish directory.
// An empty repoURL uses CatalogRepo.
func (s *Service) CloneCatalog(ctx context.Context, repoURL string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if repoURL == "" {
		repoURL = s.CatalogRepo()
	}
	dir := s.pub.WorkDir()
	if err := catalog.Clone(ctx, repoURL, dir, publish.TokenAuth(s.cfg.GitToken)); err != nil {
		return failed(err)
	}
	return ok("cloned %s into %s", repoURL, dir)
}

// UpdateCatalog pulls the publish directory checkout.
func (s *Service) UpdateCatalog(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.pub.WorkDir()
	changed, err := catalog.Update(ctx, dir, publish.TokenAuth(s.cfg.GitToken))
	if err != nil {
		return failed(err)
	}
	if !changed {
		return ok("%s is already up to date", dir)
	}
	return ok("%s updated", dir)
}

// CatalogStatus reports the state of the publish directory checkout.
func (s *Service) CatalogStatus() (*catalog.Status, error) {
	return catalog.Inspect(s.pub.WorkDir())
}

// CreatePackageFromDirectory builds a distributable archive of folder into
// outDir and returns its path.
func (s *Service) CreatePackageFromDirectory(ctx context.Context, folder, outDir string) (Result, string) {
	path, err := s.inst.CreatePackageFromDirectory(ctx, folder, outDir)
	if err != nil {
		return failed(err), ""
	}
	return ok("package created: %s", path), path
}

// describe turns a core error into a user-facing message.
func describe(err error) string {
	var ie *installer.Error
	if errors.As(err, &ie) {
		name := ie.Package
		if name == "" {
			name = "package"
		}
		switch ie.Kind {
		case installer.KindConflict:
			return fmt.Sprintf("%s is already installed; use --force to replace it", name)
		case installer.KindNotFound:
			return fmt.Sprintf("%s not found (%s): %v", name, ie.Stage, ie.Err)
		}
		return ie.Error()
	}
	var pe *publish.ValidationError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	return err.Error()
}
