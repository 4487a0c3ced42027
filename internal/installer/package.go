package installer

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/clapp-dev/clapp/internal/archive"
	"github.com/clapp-dev/clapp/internal/platform"
)

// ArchiveName returns the distributable file name for a package version.
func ArchiveName(name, version string) string {
	return fmt.Sprintf("%s-%s%s", name, version, archive.Extension)
}

// CreatePackageFromDirectory validates the app in dir and writes
// <name>-<version>.clapp.zip into outDir. It returns the archive path.
func (i *Installer) CreatePackageFromDirectory(ctx context.Context, dir, outDir string) (string, error) {
	m, err := CheckPackageDir(dir)
	if err != nil {
		return "", fail(StageValidating, KindValidation, "", err)
	}

	if err := platform.MkdirAll(outDir); err != nil {
		return "", fail(StagePackaging, KindFilesystem, m.Name, err)
	}
	out := filepath.Join(outDir, ArchiveName(m.Name, m.Version))

	n, err := archive.Create(ctx, dir, out, archive.DefaultIgnore)
	if err != nil {
		return "", fail(StagePackaging, KindFilesystem, m.Name, err)
	}
	i.logger.Info("package created", zap.String("package", m.Name), zap.String("path", out), zap.Int("files", n))
	return out, nil
}
