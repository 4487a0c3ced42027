package resolver

import (
	"fmt"

	"github.com/clapp-dev/clapp/internal/registry"
	"github.com/clapp-dev/clapp/internal/runtime"
)

// Resolver resolves dependency tokens against a registry and a capability
// detector. It holds no state of its own.
type Resolver struct {
	reg  *registry.Registry
	caps runtime.Detector
}

// New creates a Resolver.
func New(reg *registry.Registry, caps runtime.Detector) *Resolver {
	return &Resolver{reg: reg, caps: caps}
}

// Resolve builds the dependency report for the installed package name.
// The error wraps registry.ErrNotFound when the package is not installed.
func (r *Resolver) Resolve(name string) (*Report, error) {
	m, err := r.reg.GetManifest(name)
	if err != nil {
		return nil, err
	}

	entries, err := r.reg.ListPackages()
	if err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	local := make(map[string]string, len(entries))
	for _, e := range entries {
		local[e.Name] = e.Version
	}

	rep := &Report{
		Package:  m.Name,
		Version:  m.Version,
		Language: m.Language,
		Items:    make([]Item, 0, len(m.Dependencies)),
	}
	for _, dep := range m.Dependencies {
		rep.Items = append(rep.Items, r.resolveToken(dep, local))
	}

	c, ok := runtime.Runnable(r.caps, m.Language)
	rep.RuntimeAvailable = ok
	rep.RuntimePath = c.Path
	return rep, nil
}

// ResolveSystem resolves every installed package and collects the app
// directories that failed to load.
func (r *Resolver) ResolveSystem() (*SystemReport, error) {
	entries, invalid, err := r.reg.Scan()
	if err != nil {
		return nil, fmt.Errorf("scanning apps root: %w", err)
	}

	sys := &SystemReport{
		Reports: make([]*Report, 0, len(entries)),
		Invalid: invalid,
	}
	for _, e := range entries {
		rep, err := r.Resolve(e.Name)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", e.Name, err)
		}
		sys.Reports = append(sys.Reports, rep)
	}
	return sys, nil
}

// resolveToken checks local packages before system capabilities, so a
// package named like a runtime shadows it.
func (r *Resolver) resolveToken(token string, local map[string]string) Item {
	if version, ok := local[token]; ok {
		return Item{Name: token, Kind: KindLocal, Satisfied: true, Detail: "v" + version}
	}

	if c, known := r.caps.Lookup(token); known {
		it := Item{Name: token, Kind: KindSystem, Satisfied: c.Found}
		if c.Found {
			it.Detail = c.Path
		} else {
			it.Detail = "not found on PATH"
		}
		return it
	}

	return Item{Name: token, Kind: KindLocal, Satisfied: false, Detail: "not installed"}
}
