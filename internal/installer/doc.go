// Package installer places apps into the apps root and removes them.
//
// An install moves through fixed stages: resolving the source, downloading
// (URLs only), extracting into a staging directory, validating the staged
// manifest and entry file, and placing the result with a single rename.
// Staging lives next to the apps root so placement never crosses a
// filesystem boundary. Any failure before the final rename leaves the apps
// root untouched; a forced replace keeps a backup of the previous install
// until the new one is in place.
//
// The installer does no locking. Callers must serialize mutations of the
// same apps root.
package installer
