// Package platform holds the file permission conventions shared by the
// components that write into the apps root, scaffolded apps and the publish
// repository. Permission bits are ignored on Windows.
package platform
