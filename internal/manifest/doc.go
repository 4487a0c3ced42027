// Package manifest handles parsing, validation, and serialization of app
// manifests (manifest.json). A manifest declares the app name, version,
// runtime language, entry file, and optional description and dependencies.
//
// Raw JSON is inspected as a generic document only while validating; every
// caller past Parse works with the typed Manifest struct.
package manifest
