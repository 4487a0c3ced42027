// Package cli defines the Cobra command tree for the clapp CLI. Each file
// registers one or two related commands with the root command. Commands go
// through internal/service for every operation and only handle flag
// parsing, output formatting and confirmation prompts.
package cli
