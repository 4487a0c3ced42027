package runtime

import (
	"os/exec"
	"sort"
	"strings"

	"github.com/clapp-dev/clapp/internal/manifest"
)

// BinaryPrefix marks a dependency token that names an arbitrary binary,
// e.g. "bin:ffmpeg".
const BinaryPrefix = "bin:"

// Capability is the result of looking up a system capability.
type Capability struct {
	Name  string // dependency token as declared
	Path  string // resolved executable path; empty when not found
	Found bool
}

// Detector looks up system capabilities. Lookup returns known=false when
// the token is not a recognized capability at all.
type Detector interface {
	Lookup(token string) (c Capability, known bool)
}

// LookPathFunc resolves an executable name to a path.
type LookPathFunc func(file string) (string, error)

// defaultCandidates maps capability tokens to the executables that satisfy
// them, in preference order.
var defaultCandidates = map[string][]string{
	"python":  {"python3", "python"},
	"python3": {"python3"},
	"lua":     {"lua", "lua5.4", "lua5.3", "luajit"},
	"luajit":  {"luajit"},
	"git":     {"git"},
	"node":    {"node"},
	"bash":    {"bash"},
	"sh":      {"sh"},
}

// PathDetector resolves capabilities against the process PATH.
type PathDetector struct {
	lookPath   LookPathFunc
	candidates map[string][]string
}

// Option configures a PathDetector.
type Option func(*PathDetector)

// WithLookPath replaces exec.LookPath (useful for testing).
func WithLookPath(fn LookPathFunc) Option {
	return func(d *PathDetector) {
		d.lookPath = fn
	}
}

// WithCapability registers an extra capability token and its executables.
func WithCapability(token string, executables ...string) Option {
	return func(d *PathDetector) {
		d.candidates[strings.ToLower(token)] = executables
	}
}

// NewPathDetector creates a detector preloaded with the default capability set.
func NewPathDetector(opts ...Option) *PathDetector {
	d := &PathDetector{
		lookPath:   exec.LookPath,
		candidates: make(map[string][]string, len(defaultCandidates)),
	}
	for k, v := range defaultCandidates {
		d.candidates[k] = v
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Lookup implements Detector.
func (d *PathDetector) Lookup(token string) (Capability, bool) {
	c := Capability{Name: token}

	var candidates []string
	if bin, ok := strings.CutPrefix(token, BinaryPrefix); ok {
		if bin == "" {
			return c, false
		}
		candidates = []string{bin}
	} else {
		var known bool
		candidates, known = d.candidates[strings.ToLower(token)]
		if !known {
			return c, false
		}
	}

	for _, exe := range candidates {
		if p, err := d.lookPath(exe); err == nil {
			c.Path = p
			c.Found = true
			break
		}
	}
	return c, true
}

// Known returns the sorted list of recognized capability tokens.
func (d *PathDetector) Known() []string {
	out := make([]string, 0, len(d.candidates))
	for k := range d.candidates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Interpreter returns the capability token that runs apps written in language.
func Interpreter(language string) string {
	switch language {
	case manifest.LanguagePython:
		return "python"
	case manifest.LanguageLua:
		return "lua"
	default:
		return ""
	}
}

// Runnable reports whether the interpreter for language is available.
func Runnable(d Detector, language string) (Capability, bool) {
	token := Interpreter(language)
	if token == "" {
		return Capability{Name: language}, false
	}
	c, known := d.Lookup(token)
	return c, known && c.Found
}
