package installer

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/clapp-dev/clapp/internal/registry"
	"github.com/clapp-dev/clapp/internal/remote"
)

// Lookup finds a package in the remote index.
type Lookup interface {
	GetPackageInfo(ctx context.Context, name string) (*remote.Record, bool)
}

// UpgradeResult describes the outcome of Upgrade.
type UpgradeResult struct {
	Name      string  `json:"name"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Direction string  `json:"direction,omitempty"`
	UpToDate  bool    `json:"up_to_date"`
	Install   *Result `json:"install,omitempty"`
}

// Direction labels a version change for display. Versions that do not
// parse as semver, or compare equal, are labelled "change".
func Direction(from, to string) string {
	vf, err1 := semver.NewVersion(from)
	vt, err2 := semver.NewVersion(to)
	if err1 != nil || err2 != nil {
		return "change"
	}
	switch {
	case vt.GreaterThan(vf):
		return "upgrade"
	case vt.LessThan(vf):
		return "downgrade"
	default:
		return "change"
	}
}

// InstallFromRemote looks name up in the index and installs it from the
// record's download URL.
func (i *Installer) InstallFromRemote(ctx context.Context, name string, force bool, lookup Lookup) (*Result, error) {
	rec, ok := lookup.GetPackageInfo(ctx, name)
	if !ok {
		return nil, fail(StageResolving, KindNotFound, name, errors.New("not found in remote index"))
	}
	if rec.DownloadURL == "" {
		return nil, fail(StageResolving, KindNotFound, name, errors.New("remote record has no download_url"))
	}
	return i.install(ctx, rec.DownloadURL, force, name)
}

// Upgrade reinstalls name from the remote index when the remote version
// string differs from the installed one. Versions are compared by string
// equality only.
func (i *Installer) Upgrade(ctx context.Context, name string, lookup Lookup) (*UpgradeResult, error) {
	local, err := i.reg.GetManifest(name)
	if err != nil {
		return nil, fail(StageResolving, KindNotFound, name, err)
	}
	rec, ok := lookup.GetPackageInfo(ctx, name)
	if !ok {
		return nil, fail(StageResolving, KindNotFound, name, errors.New("not found in remote index"))
	}

	res := &UpgradeResult{Name: name, From: local.Version, To: rec.Version}
	if local.Version == rec.Version {
		res.UpToDate = true
		return res, nil
	}
	res.Direction = Direction(local.Version, rec.Version)
	i.logger.Info("updating package", zap.String("package", name),
		zap.String("from", local.Version), zap.String("to", rec.Version), zap.String("direction", res.Direction))

	if rec.DownloadURL == "" {
		return nil, fail(StageResolving, KindNotFound, name, errors.New("remote record has no download_url"))
	}
	inst, err := i.install(ctx, rec.DownloadURL, true, name)
	if err != nil {
		return nil, err
	}
	if inst.Version != rec.Version {
		i.logger.Warn("installed version differs from index", zap.String("package", name),
			zap.String("index", rec.Version), zap.String("installed", inst.Version))
	}
	res.Install = inst
	return res, nil
}

// IsNotInstalled reports whether err means the package is not installed.
func IsNotInstalled(err error) bool {
	return errors.Is(err, registry.ErrNotFound)
}
