// Package resolver checks the declared dependencies of installed apps.
//
// Each dependency token is matched against the local registry first and
// then against the known system capabilities (interpreters and binaries on
// PATH). Reports are advisory: nothing in this package blocks an install,
// a run or a publish.
package resolver
