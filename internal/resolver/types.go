package resolver

import (
	"fmt"
	"strings"

	"github.com/clapp-dev/clapp/internal/registry"
)

// Kind classifies where a dependency is expected to come from.
type Kind string

const (
	KindLocal  Kind = "local"
	KindSystem Kind = "system"
)

// Item is the resolution outcome of a single dependency token.
type Item struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Satisfied bool   `json:"satisfied"`
	Detail    string `json:"detail,omitempty"`
}

// Report lists the dependency outcomes for one package.
type Report struct {
	Package          string `json:"package"`
	Version          string `json:"version"`
	Language         string `json:"language"`
	Items            []Item `json:"items"`
	RuntimeAvailable bool   `json:"runtime_available"`
	RuntimePath      string `json:"runtime_path,omitempty"`
}

// Missing returns the unsatisfied items, in declaration order.
func (r *Report) Missing() []Item {
	var out []Item
	for _, it := range r.Items {
		if !it.Satisfied {
			out = append(out, it)
		}
	}
	return out
}

// OK reports whether every dependency is satisfied.
func (r *Report) OK() bool {
	return len(r.Missing()) == 0
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)\n", r.Package, r.Version, r.Language)
	if r.RuntimeAvailable {
		fmt.Fprintf(&b, "  runtime: available (%s)\n", r.RuntimePath)
	} else {
		b.WriteString("  runtime: not found\n")
	}

	if len(r.Items) == 0 {
		b.WriteString("  no dependencies\n")
		return b.String()
	}
	for _, it := range r.Items {
		mark := "✓"
		if !it.Satisfied {
			mark = "✗"
		}
		line := fmt.Sprintf("  %s %s [%s]", mark, it.Name, it.Kind)
		if it.Detail != "" {
			line += " " + it.Detail
		}
		b.WriteString(line + "\n")
	}
	if missing := r.Missing(); len(missing) > 0 {
		fmt.Fprintf(&b, "  %d missing dependency(ies)\n", len(missing))
	}
	return b.String()
}

// SystemReport aggregates the reports of every installed package plus the
// app directories that could not be loaded.
type SystemReport struct {
	Reports []*Report          `json:"reports"`
	Invalid []registry.Invalid `json:"invalid"`
}

// OK reports whether every package resolves and no invalid entries exist.
func (s *SystemReport) OK() bool {
	if len(s.Invalid) > 0 {
		return false
	}
	for _, r := range s.Reports {
		if !r.OK() || !r.RuntimeAvailable {
			return false
		}
	}
	return true
}

func (s *SystemReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Installed packages: %d\n", len(s.Reports))

	var missing, noRuntime int
	for _, r := range s.Reports {
		if !r.OK() {
			missing++
		}
		if !r.RuntimeAvailable {
			noRuntime++
		}
	}
	fmt.Fprintf(&b, "Packages with missing dependencies: %d\n", missing)
	fmt.Fprintf(&b, "Packages without a runtime: %d\n", noRuntime)

	for _, r := range s.Reports {
		if r.OK() && r.RuntimeAvailable {
			continue
		}
		b.WriteString("\n")
		b.WriteString(r.String())
	}

	if len(s.Invalid) > 0 {
		fmt.Fprintf(&b, "\nInvalid app directories: %d\n", len(s.Invalid))
		for _, inv := range s.Invalid {
			fmt.Fprintf(&b, "  %s: %s\n", inv.Dir, strings.Join(inv.Errors, "; "))
		}
	}
	return b.String()
}
