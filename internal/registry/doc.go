// Package registry is the read-only view over locally installed apps. It
// scans the apps root, loads each subdirectory's manifest.json, and exposes
// lookups by name. Nothing is cached between calls: every query rescans.
package registry
