// Package branding provides compile-time identity values for the CLI.
//
// The values come from branding.yaml, embedded with //go:embed. Forks that
// publish their own catalog only need to edit that file.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GoModule    string `yaml:"go_module"`
	GitHubRepo  string `yaml:"github_repo"`
	IndexURL    string `yaml:"index_url"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			CLIName:     "clapp",
			DisplayName: "clapp",
			Description: "Package manager for small Python and Lua apps",
			HomeDir:     ".clapp",
			EnvPrefix:   "CLAPP",
			GoModule:    "github.com/clapp-dev/clapp",
			GitHubRepo:  "mburakmmm/clapp-packages",
			IndexURL:    "https://raw.githubusercontent.com/mburakmmm/clapp-packages/main/index.json",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "clapp").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".clapp").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "CLAPP").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path the binary was built from.
func GoModule() string { load(); return defaults.GoModule }

// GitHubRepo returns the "owner/repo" string of the package catalog.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// IndexURL returns the default URL of the remote package index.
func IndexURL() string { load(); return defaults.IndexURL }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("APPS_ROOT") → "CLAPP_APPS_ROOT".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
