package platform

import (
	"os"
	"runtime"
)

// Permissions for created directories, regular files and app entry files.
const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
	ExecPerm os.FileMode = 0755
)

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// MkdirAll creates dir and its parents with DirPerm.
func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DirPerm)
}

// FileMode returns the mode to create an extracted or copied file with.
// A zero mode falls back to FilePerm, and the owner always keeps write
// access so a later uninstall can remove the file.
func FileMode(mode os.FileMode) os.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		perm = FilePerm
	}
	return perm | 0200
}
