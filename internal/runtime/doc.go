// Package runtime detects system capabilities: interpreters and other
// binaries reachable on PATH. The dependency resolver uses it to decide
// whether a dependency token such as "python" or "git" is satisfied, and
// whether an app's own language runtime is present so the app can run.
package runtime
