// Package archive creates and extracts app archives and copies app
// directories.
//
// Archives are plain zip files. Creation walks the source tree with
// fastwalk, drops ignored paths and writes entries in sorted order so the
// same tree always produces the same entry list. Extraction refuses entries
// that would escape the destination directory.
package archive
