package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/clapp-dev/clapp/internal/archive"
	"github.com/clapp-dev/clapp/internal/installer"
	"github.com/clapp-dev/clapp/internal/manifest"
	"github.com/clapp-dev/clapp/internal/platform"
)

// Stage names a publish step.
type Stage string

const (
	StageValidate Stage = "validate"
	StageStage    Stage = "stage"
	StageReindex  Stage = "reindex"
	StagePush     Stage = "push"
)

// ValidationError lists every problem that stopped a publish before any
// file was written.
type ValidationError struct {
	Folder string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is not publishable: %s", e.Folder, strings.Join(e.Errors, "; "))
}

// StageError wraps a failure of the stage or reindex step.
type StageError struct {
	Stage   Stage
	Package string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("publishing %s failed at %s: %v", e.Package, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result describes a publish whose local stages succeeded.
type Result struct {
	Name          string
	Version       string
	StagedPath    string
	ArchivePath   string
	IndexPath     string
	Packages      int
	PushRequested bool
	Pushed        bool
	NoChanges     bool
	PushErr       error
}

// Partial reports whether the local stages succeeded but the push failed.
func (r *Result) Partial() bool {
	return r.PushRequested && r.PushErr != nil
}

// Pipeline publishes apps into a work directory.
type Pipeline struct {
	workDir string
	baseURL string
	author  string
	pusher  Pusher
	logger  *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBaseURL sets the prefix of generated download URLs.
func WithBaseURL(u string) Option {
	return func(p *Pipeline) { p.baseURL = u }
}

// WithPusher replaces the default go-git pusher.
func WithPusher(pu Pusher) Option {
	return func(p *Pipeline) { p.pusher = pu }
}

// WithAuthor sets the author recorded in index records and commits.
func WithAuthor(a string) Option {
	return func(p *Pipeline) { p.author = a }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline rooted at workDir.
func New(workDir string, opts ...Option) *Pipeline {
	p := &Pipeline{workDir: workDir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.pusher == nil {
		p.pusher = NewGitPusher(p.author, "")
	}
	return p
}

// WorkDir returns the publish work directory.
func (p *Pipeline) WorkDir() string {
	return p.workDir
}

// Publish validates folder, stages it, rebuilds the index and, when push
// is set, commits and pushes the result.
func (p *Pipeline) Publish(ctx context.Context, folder string, push bool) (*Result, error) {
	m, err := Validate(folder)
	if err != nil {
		return nil, err
	}
	log := p.logger.With(zap.String("package", m.Name))
	log.Debug("publish stage", zap.String("stage", string(StageStage)))

	staged, archivePath, err := p.stage(ctx, folder, m)
	if err != nil {
		return nil, &StageError{Stage: StageStage, Package: m.Name, Err: err}
	}

	log.Debug("publish stage", zap.String("stage", string(StageReindex)))
	idx, invalid, err := BuildIndex(filepath.Join(p.workDir, PackagesDir), p.baseURL, p.author)
	if err != nil {
		return nil, &StageError{Stage: StageReindex, Package: m.Name, Err: err}
	}
	for _, inv := range invalid {
		log.Warn("staged folder left out of index", zap.String("dir", inv.Dir), zap.Strings("errors", inv.Errors))
	}
	indexPath := filepath.Join(p.workDir, IndexFile)
	if prev, err := ReadIndex(indexPath); err == nil {
		KeepUpdatedAt(idx, prev)
	}
	if err := WriteIndex(indexPath, idx); err != nil {
		return nil, &StageError{Stage: StageReindex, Package: m.Name, Err: err}
	}

	res := &Result{
		Name:          m.Name,
		Version:       m.Version,
		StagedPath:    staged,
		ArchivePath:   archivePath,
		IndexPath:     indexPath,
		Packages:      len(idx.Packages),
		PushRequested: push,
	}
	if !push {
		return res, nil
	}

	log.Debug("publish stage", zap.String("stage", string(StagePush)))
	changed, err := p.pusher.Push(ctx, p.workDir, fmt.Sprintf("Publish %s v%s", m.Name, m.Version))
	switch {
	case err != nil:
		log.Warn("push failed", zap.Error(err))
		res.PushErr = err
	case !changed:
		res.NoChanges = true
	default:
		res.Pushed = true
	}
	return res, nil
}

// Validate checks that folder holds a publishable app and returns its
// manifest. Failures are reported as *ValidationError.
func Validate(folder string) (*manifest.Manifest, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, &ValidationError{Folder: folder, Errors: []string{"directory not found: " + folder}}
	}
	if !info.IsDir() {
		return nil, &ValidationError{Folder: folder, Errors: []string{folder + " is not a directory"}}
	}

	m, err := installer.CheckPackageDir(folder)
	if err != nil {
		errs := manifest.Errors(err)
		if len(errs) == 0 {
			errs = []string{err.Error()}
		}
		return nil, &ValidationError{Folder: folder, Errors: errs}
	}
	return m, nil
}

// stage copies folder to packages/<name> and writes the distributable
// archive. The previous staged copy is replaced only after the new one is
// complete.
func (p *Pipeline) stage(ctx context.Context, folder string, m *manifest.Manifest) (string, string, error) {
	packagesDir := filepath.Join(p.workDir, PackagesDir)
	distDir := filepath.Join(p.workDir, DistDir)
	for _, d := range []string{packagesDir, distDir} {
		if err := platform.MkdirAll(d); err != nil {
			return "", "", fmt.Errorf("creating %s: %w", d, err)
		}
	}

	tmp, err := os.MkdirTemp(packagesDir, ".stage-")
	if err != nil {
		return "", "", fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	fresh := filepath.Join(tmp, m.Name)
	if err := archive.CopyDir(ctx, folder, fresh, archive.DefaultIgnore); err != nil {
		return "", "", err
	}

	archivePath := filepath.Join(distDir, installer.ArchiveName(m.Name, m.Version))
	if _, err := archive.Create(ctx, fresh, archivePath, archive.DefaultIgnore); err != nil {
		return "", "", fmt.Errorf("creating archive: %w", err)
	}

	target := filepath.Join(packagesDir, m.Name)
	prevVersion := ""
	if prev, err := manifest.LoadDir(target); err == nil {
		prevVersion = prev.Version
	}

	backup := filepath.Join(tmp, ".previous")
	_, statErr := os.Stat(target)
	hadPrevious := statErr == nil
	if hadPrevious {
		if err := os.Rename(target, backup); err != nil {
			return "", "", fmt.Errorf("moving previous staged copy: %w", err)
		}
	}
	if err := os.Rename(fresh, target); err != nil {
		if hadPrevious {
			if rerr := os.Rename(backup, target); rerr != nil {
				p.logger.Error("restoring previous staged copy failed", zap.String("path", target), zap.Error(rerr))
			}
		}
		return "", "", fmt.Errorf("placing staged copy: %w", err)
	}

	if prevVersion != "" && prevVersion != m.Version {
		old := filepath.Join(distDir, installer.ArchiveName(m.Name, prevVersion))
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("removing outdated archive", zap.String("path", old), zap.Error(err))
		}
	}
	return target, archivePath, nil
}
